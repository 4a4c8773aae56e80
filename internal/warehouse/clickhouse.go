// Package warehouse is the ClickHouse layer: incident and context reads,
// enrichment and relevance writes, and LLM usage accounting.
package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

// Config holds ClickHouse connection settings.
type Config struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool
}

// Warehouse wraps the ClickHouse connection.
type Warehouse struct {
	config *Config
	db     *sql.DB
}

// New creates a warehouse handle. Call Open before use.
func New(config *Config) *Warehouse {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	return &Warehouse{config: config}
}

// Open initializes the ClickHouse connection.
func (w *Warehouse) Open() error {
	opts := &clickhouse.Options{
		Addr: w.config.Addresses,
		Auth: clickhouse.Auth{
			Database: w.config.Database,
			Username: w.config.Username,
			Password: w.config.Password,
		},
		DialTimeout:  w.config.DialTimeout,
		MaxOpenConns: w.config.MaxOpenConns,
		MaxIdleConns: w.config.MaxIdleConns,
	}

	if w.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	ctx, cancel := context.WithTimeout(context.Background(), w.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	w.db = db
	return nil
}

// Close closes the database connection.
func (w *Warehouse) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Ping checks the connection health.
func (w *Warehouse) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// Migrate creates the pipeline tables if they don't exist. The source
// tables (reports, contextos) are created too so a fresh database can be
// seeded locally.
func (w *Warehouse) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id_report String,
			id_source String,
			id_report_original String,
			data_report DateTime64(3, 'UTC'),
			orgaos Array(String),
			categoria String,
			tipo_subtipo String,
			descricao String,
			logradouro String,
			numero_logradouro String,
			latitude Float64 DEFAULT 0,
			longitude Float64 DEFAULT 0,
			_date Date DEFAULT toDate(data_report)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (id_source, data_report, id_report)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS contextos (
			id String,
			tipo String,
			datahora_inicio String,
			datahora_fim String,
			nome String,
			descricao String,
			informacoes_adicionais String,
			endereco String,
			local String,
			geometria String,
			raio_de_busca Int32 DEFAULT 0,
			cidade_inteira UInt8 DEFAULT 0,
			solicitantes Array(String)
		)
		ENGINE = MergeTree()
		ORDER BY id
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS reports_enriquecidos (
			id_report String,
			data_report DateTime64(3, 'UTC'),
			categoria String,
			descricao String,
			is_related UInt8,
			justification String,
			categorias Array(String),
			event_types Array(String),
			locations Array(String),
			people Array(String),
			event_time Array(String),
			reasoning Array(String),
			date_execution DateTime64(3, 'UTC'),
			_date Date DEFAULT toDate(date_execution)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (id_report, date_execution)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS relevancia_contextos (
			id_relacao String,
			id_report String,
			contexto_id String,
			is_relevant UInt8,
			relevance_reasoning String,
			date_execution DateTime64(3, 'UTC'),
			_date Date DEFAULT toDate(date_execution)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (id_relacao, date_execution)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS alertas_mensagens (
			id_alerta String,
			solicitante String,
			id_report String,
			cidade_inteira UInt8,
			mensagem String,
			relacoes Array(String),
			contextos_relacionados Array(String),
			date_execution DateTime64(3, 'UTC'),
			_date Date DEFAULT toDate(date_execution)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (solicitante, date_execution, id_alerta)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS llm_usage_logs (
			etapa LowCardinality(String),
			id_report String,
			contexto_id String,
			model LowCardinality(String),
			temperature Float64,
			prompt_tokens Int64,
			completion_tokens Int64,
			total_tokens Int64,
			custo Float64,
			date_execution DateTime64(3, 'UTC'),
			_date Date DEFAULT toDate(date_execution)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (etapa, date_execution)
		SETTINGS index_granularity = 8192`,
	}

	for _, ddl := range tables {
		if _, err := w.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Incidents loads reports registered since the cutoff, newest excluded
// sources filtered out. Rows with malformed tipo_subtipo keep an empty list.
func (w *Warehouse) Incidents(ctx context.Context, since time.Time, excludeSources []string) ([]*models.Incident, error) {
	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("incidents", "clickhouse").Observe(time.Since(start).Seconds())
	}()

	var sb strings.Builder
	var args []interface{}
	sb.WriteString(`
		SELECT id_report, id_source, id_report_original, data_report,
		       orgaos, categoria, tipo_subtipo, descricao,
		       logradouro, numero_logradouro, latitude, longitude
		FROM reports
		WHERE data_report >= ? AND data_report <= now()
	`)
	args = append(args, since)

	if len(excludeSources) > 0 {
		placeholders := make([]string, len(excludeSources))
		for i, src := range excludeSources {
			placeholders[i] = "?"
			args = append(args, src)
		}
		sb.WriteString(fmt.Sprintf(" AND id_source NOT IN (%s)", strings.Join(placeholders, ", ")))
	}
	sb.WriteString(" ORDER BY data_report")

	rows, err := w.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("incidents", "clickhouse").Inc()
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var incidents []*models.Incident
	for rows.Next() {
		incident := &models.Incident{}
		var tipoSubtipoJSON string

		err := rows.Scan(
			&incident.IDReport,
			&incident.IDSource,
			&incident.IDReportOriginal,
			&incident.DataReport,
			&incident.Orgaos,
			&incident.Categoria,
			&tipoSubtipoJSON,
			&incident.Descricao,
			&incident.Logradouro,
			&incident.NumeroLogradouro,
			&incident.Latitude,
			&incident.Longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}

		if tipoSubtipoJSON != "" {
			if err := json.Unmarshal([]byte(tipoSubtipoJSON), &incident.TipoSubtipo); err != nil {
				log.Printf("warehouse: report %s has malformed tipo_subtipo: %v", incident.IDReport, err)
			}
		}

		incident.SetQualityFlags()
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return incidents, nil
}

// Contexts loads every monitored context. Window filtering happens in
// memory because the bounds are stored as strings.
func (w *Warehouse) Contexts(ctx context.Context) ([]*models.MonitoredContext, error) {
	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("contexts", "clickhouse").Observe(time.Since(start).Seconds())
	}()

	rows, err := w.db.QueryContext(ctx, `
		SELECT id, tipo, datahora_inicio, datahora_fim, nome, descricao,
		       informacoes_adicionais, endereco, local, geometria,
		       raio_de_busca, cidade_inteira, solicitantes
		FROM contextos
	`)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("contexts", "clickhouse").Inc()
		return nil, fmt.Errorf("query contextos: %w", err)
	}
	defer rows.Close()

	var contexts []*models.MonitoredContext
	for rows.Next() {
		c := &models.MonitoredContext{}
		var cidadeInteira uint8

		err := rows.Scan(
			&c.ID,
			&c.Tipo,
			&c.DatahoraInicio,
			&c.DatahoraFim,
			&c.Nome,
			&c.Descricao,
			&c.InformacoesAdicionais,
			&c.Endereco,
			&c.Local,
			&c.Geometria,
			&c.RaioDeBusca,
			&cidadeInteira,
			&c.Solicitantes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan contexto: %w", err)
		}
		c.CidadeInteira = cidadeInteira != 0
		contexts = append(contexts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return contexts, nil
}

// ExistingRelationIDs returns which of the given relation fingerprints have
// already been judged, so re-runs skip pairs instead of re-spending tokens.
func (w *Warehouse) ExistingRelationIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT id_relacao FROM relevancia_contextos WHERE id_relacao IN (%s)",
		strings.Join(placeholders, ", "),
	)
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("relation_ids", "clickhouse").Inc()
		return nil, fmt.Errorf("query relation ids: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan relation id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return existing, nil
}

// EnrichedReport is one incident with its classification outputs, staged for
// the reports_enriquecidos table.
type EnrichedReport struct {
	Incident      *models.Incident
	Safety        models.SafetyResult
	Categories    models.CategoriesResult
	Entities      models.EntitiesResult
	DateExecution time.Time
}

// InsertEnrichedReports appends enrichment rows.
func (w *Warehouse) InsertEnrichedReports(ctx context.Context, reports []EnrichedReport) error {
	if len(reports) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("insert_enriched", "clickhouse").Observe(time.Since(start).Seconds())
	}()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reports_enriquecidos (
			id_report, data_report, categoria, descricao,
			is_related, justification, categorias,
			event_types, locations, people, event_time, reasoning,
			date_execution
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range reports {
		isRelated := uint8(0)
		if r.Safety.IsRelated {
			isRelated = 1
		}
		_, err := stmt.ExecContext(ctx,
			r.Incident.IDReport,
			r.Incident.DataReport,
			r.Incident.Categoria,
			r.Incident.Descricao,
			isRelated,
			r.Safety.Justification,
			r.Categories.Categorias,
			r.Entities.EventTypes,
			r.Entities.Locations,
			r.Entities.People,
			r.Entities.EventTime,
			r.Entities.Reasoning,
			r.DateExecution,
		)
		if err != nil {
			metrics.StorageErrors.WithLabelValues("insert_enriched", "clickhouse").Inc()
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InsertRelevanceResults appends relevance judgments.
func (w *Warehouse) InsertRelevanceResults(ctx context.Context, results []models.RelevanceResult, dateExecution time.Time) error {
	if len(results) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("insert_relevance", "clickhouse").Observe(time.Since(start).Seconds())
	}()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relevancia_contextos (
			id_relacao, id_report, contexto_id,
			is_relevant, relevance_reasoning, date_execution
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		isRelevant := uint8(0)
		if r.IsRelevant {
			isRelevant = 1
		}
		_, err := stmt.ExecContext(ctx,
			r.IDRelacao,
			r.IDReport,
			r.ContextoID,
			isRelevant,
			r.RelevanceReasoning,
			dateExecution,
		)
		if err != nil {
			metrics.StorageErrors.WithLabelValues("insert_relevance", "clickhouse").Inc()
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InsertAlerts appends generated alert messages, mirrored to the warehouse
// before delivery so the analytical side sees every alert, sent or not.
func (w *Warehouse) InsertAlerts(ctx context.Context, alerts []*models.Alert, dateExecution time.Time) error {
	if len(alerts) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("insert_alerts", "clickhouse").Observe(time.Since(start).Seconds())
	}()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO alertas_mensagens (
			id_alerta, solicitante, id_report, cidade_inteira,
			mensagem, relacoes, contextos_relacionados, date_execution
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, a := range alerts {
		wholeCity := uint8(0)
		if a.WholeCity {
			wholeCity = 1
		}
		_, err := stmt.ExecContext(ctx,
			a.ID,
			a.Solicitante,
			a.IDReport,
			wholeCity,
			a.Message,
			a.RelationIDs,
			a.ContextNames,
			dateExecution,
		)
		if err != nil {
			metrics.StorageErrors.WithLabelValues("insert_alerts", "clickhouse").Inc()
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InsertUsageLogs appends LLM usage rows.
func (w *Warehouse) InsertUsageLogs(ctx context.Context, entries []models.UsageLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("insert_usage", "clickhouse").Observe(time.Since(start).Seconds())
	}()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO llm_usage_logs (
			etapa, id_report, contexto_id, model, temperature,
			prompt_tokens, completion_tokens, total_tokens, custo,
			date_execution
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.Etapa,
			e.IDReport,
			e.ContextoID,
			e.Model,
			e.Temperature,
			e.PromptTokens,
			e.CompletionTokens,
			e.TotalTokens,
			e.Custo,
			e.DateExecution,
		)
		if err != nil {
			metrics.StorageErrors.WithLabelValues("insert_usage", "clickhouse").Inc()
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
