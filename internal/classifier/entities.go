package classifier

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/bluelight-labs/vigia/internal/llm"
	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

const entityExtractionSystemPrompt = `Você é um analista de segurança pública experiente.

Analise as informações da ocorrência fornecida e extraia:

1. Tipos de evento: eventos mencionados (ex: tiroteio, assalto, tráfico), separados por vírgula.
2. Locais: locais específicos mencionados (ruas, bairros, pontos de referência), separados por vírgula.
3. Pessoas ou grupos: pessoas, grupos ou organizações mencionadas, separados por vírgula.
4. Data e hora do evento: estime quando o evento descrito ocorreu, considerando expressões temporais como "ontem" e "hoje de manhã" e usando a data do relato como referência. Formato: YYYY-MM-DD HH:MM:SS.
5. Justificativa: explique brevemente como a data e hora foram inferidas.

Importante:
- Se não houver informação suficiente, use "não informado"
- Para data/hora, use a data do relato se não houver indicação temporal específica
- Seja preciso e objetivo nas extrações

Responda EXATAMENTE no formato abaixo, sem texto adicional:
event_types: ...
locations: ...
people: ...
event_time: ...
reasoning: ...`

// sentinelValues are model spellings of "nothing found" that must never
// surface as extracted entities.
var sentinelValues = map[string]bool{
	"":              true,
	"não informado": true,
	"n/a":           true,
}

// EntityExtraction pulls structured entities and an estimated event time out
// of incident descriptions. It runs only on incidents the triage stage
// marked as safety-related.
type EntityExtraction struct {
	client      llm.Client
	temperature float64
	maxTokens   int
	usage       *UsageLog
}

// NewEntityExtraction creates the extraction classifier.
func NewEntityExtraction(client llm.Client, usage *UsageLog) *EntityExtraction {
	return &EntityExtraction{
		client:      client,
		temperature: 0.3,
		maxTokens:   1024,
		usage:       usage,
	}
}

// Name returns the stage discriminator.
func (c *EntityExtraction) Name() string { return models.ClassificationEntities }

// ClassifySingle extracts entities from one incident.
func (c *EntityExtraction) ClassifySingle(ctx context.Context, incident *models.Incident) models.EntitiesResult {
	descricao := strings.TrimSpace(incident.Descricao)
	if descricao == "" {
		metrics.ClassificationsTotal.WithLabelValues(c.Name(), "skipped").Inc()
		return c.errorResult(incident.IDReport)
	}

	var b strings.Builder
	if !incident.DataReport.IsZero() {
		b.WriteString("Data do relato: " + incident.DataReport.Format("2006-01-02 15:04:05") + "\n")
	}
	b.WriteString("Categoria: " + incident.Categoria + "\n")
	b.WriteString("Tipo/Subtipo: " + incident.TipoSubtipoString() + "\n")
	b.WriteString("Órgãos envolvidos: " + strings.Join(incident.Orgaos, ", ") + "\n")
	b.WriteString("Descrição: " + descricao)

	start := time.Now()
	resp, err := c.client.Generate(ctx, llm.Request{
		SystemPrompt: entityExtractionSystemPrompt,
		UserPrompt:   b.String(),
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
	})
	metrics.ClassificationDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("%s: error extracting entities for report %s: %v", c.Name(), incident.IDReport, err)
		metrics.ClassificationsTotal.WithLabelValues(c.Name(), "error").Inc()
		return c.errorResult(incident.IDReport)
	}

	c.usage.Record(c.Name(), incident.IDReport, "", resp.Model, c.temperature, resp)
	metrics.ClassificationsTotal.WithLabelValues(c.Name(), "ok").Inc()

	fields := llm.ParseFields(resp.Content, "event_types", "locations", "people", "event_time", "reasoning")
	return models.EntitiesResult{
		IDReport:       incident.IDReport,
		EventTypes:     parseCommaSeparated(fields["event_types"]),
		Locations:      parseCommaSeparated(fields["locations"]),
		People:         parseCommaSeparated(fields["people"]),
		EventTime:      parseSingleValue(fields["event_time"]),
		Reasoning:      parseSingleValue(fields["reasoning"]),
		ExtractionType: models.ClassificationEntities,
	}
}

// ClassifyBatch extracts entities preserving input order.
func (c *EntityExtraction) ClassifyBatch(ctx context.Context, incidents []*models.Incident, opts BatchOptions) []models.EntitiesResult {
	return mapBatch(ctx, c.Name(), incidents, opts, c.ClassifySingle)
}

func (c *EntityExtraction) errorResult(idReport string) models.EntitiesResult {
	return models.EntitiesResult{
		IDReport:       idReport,
		EventTypes:     []string{},
		Locations:      []string{},
		People:         []string{},
		EventTime:      []string{},
		Reasoning:      []string{},
		ExtractionType: models.ClassificationEntities,
	}
}

// parseCommaSeparated splits a comma-separated value, dropping empty items
// and sentinel spellings.
func parseCommaSeparated(text string) []string {
	if sentinelValues[strings.ToLower(strings.TrimSpace(text))] {
		return []string{}
	}
	items := []string{}
	for _, part := range strings.Split(text, ",") {
		item := strings.TrimSpace(part)
		if item == "" || sentinelValues[strings.ToLower(item)] {
			continue
		}
		items = append(items, item)
	}
	return items
}

// parseSingleValue wraps a scalar field in a single-element list unless it
// is a sentinel.
func parseSingleValue(text string) []string {
	trimmed := strings.TrimSpace(text)
	if sentinelValues[strings.ToLower(trimmed)] {
		return []string{}
	}
	return []string{trimmed}
}
