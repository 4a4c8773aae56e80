//go:build integration

package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/bluelight-labs/vigia/internal/models"
)

// Integration tests require running ClickHouse.
// Run with: go test -tags=integration ./internal/warehouse/...

func setupWarehouseTest(t *testing.T) (*Warehouse, func()) {
	t.Helper()

	config := &Config{
		Addresses:    []string{"localhost:9000"},
		Database:     "vigia_test",
		Username:     "default",
		Password:     "",
		MaxOpenConns: 2,
		MaxIdleConns: 2,
		DialTimeout:  5 * time.Second,
		Compression:  true,
	}

	w := New(config)
	if err := w.Open(); err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}

	if err := w.Migrate(); err != nil {
		w.Close()
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		w.db.Exec("TRUNCATE TABLE reports")
		w.db.Exec("TRUNCATE TABLE contextos")
		w.db.Exec("TRUNCATE TABLE reports_enriquecidos")
		w.db.Exec("TRUNCATE TABLE relevancia_contextos")
		w.db.Exec("TRUNCATE TABLE alertas_mensagens")
		w.db.Exec("TRUNCATE TABLE llm_usage_logs")
		w.Close()
	}

	return w, cleanup
}

func TestWarehouse_RoundTrip_Integration(t *testing.T) {
	w, cleanup := setupWarehouseTest(t)
	defer cleanup()

	ctx := context.Background()

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO reports (id_report, id_source, id_report_original, data_report,
			orgaos, categoria, tipo_subtipo, descricao, logradouro, numero_logradouro,
			latitude, longitude)
		VALUES ('RPT-1', 'src-a', 'orig-1', now() - INTERVAL 1 HOUR,
			['PM'], 'Segurança', '[{"tipo":"Tiroteio","subtipo":["Confronto"]}]',
			'tiros na rua', 'Rua Larga', '10', -22.9, -43.2)
	`)
	if err != nil {
		t.Fatalf("seed reports: %v", err)
	}

	incidents, err := w.Incidents(ctx, time.Now().Add(-24*time.Hour), []string{"1746"})
	if err != nil {
		t.Fatalf("Incidents(): %v", err)
	}
	if len(incidents) != 1 {
		t.Fatalf("got %d incidents, want 1", len(incidents))
	}
	if len(incidents[0].TipoSubtipo) != 1 || incidents[0].TipoSubtipo[0].Tipo != "Tiroteio" {
		t.Errorf("tipo_subtipo = %+v", incidents[0].TipoSubtipo)
	}

	err = w.InsertRelevanceResults(ctx, []models.RelevanceResult{
		{IDRelacao: "rel-1", IDReport: "RPT-1", ContextoID: "CTX-1", IsRelevant: true, RelevanceReasoning: "ok"},
	}, time.Now())
	if err != nil {
		t.Fatalf("InsertRelevanceResults(): %v", err)
	}

	existing, err := w.ExistingRelationIDs(ctx, []string{"rel-1", "rel-2"})
	if err != nil {
		t.Fatalf("ExistingRelationIDs(): %v", err)
	}
	if !existing["rel-1"] || existing["rel-2"] {
		t.Errorf("existing = %v", existing)
	}
}

func TestWarehouse_ExcludedSources_Integration(t *testing.T) {
	w, cleanup := setupWarehouseTest(t)
	defer cleanup()

	ctx := context.Background()
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO reports (id_report, id_source, id_report_original, data_report,
			orgaos, categoria, tipo_subtipo, descricao, logradouro, numero_logradouro,
			latitude, longitude)
		VALUES ('RPT-X', '1746', '', now() - INTERVAL 1 HOUR, [], '', '', 'buraco na via', '', '', 0, 0)
	`)
	if err != nil {
		t.Fatalf("seed reports: %v", err)
	}

	incidents, err := w.Incidents(ctx, time.Now().Add(-24*time.Hour), []string{"1746"})
	if err != nil {
		t.Fatalf("Incidents(): %v", err)
	}
	if len(incidents) != 0 {
		t.Errorf("excluded source leaked through: %+v", incidents)
	}
}
