package classifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bluelight-labs/vigia/internal/llm"
	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

const publicSafetySystemPrompt = `Você é um classificador de ocorrências de segurança pública.
Analise a descrição fornecida e responda EXATAMENTE no formato abaixo, sem texto adicional:

is_related: True se relacionado à segurança pública (crimes, violência, emergências policiais), False caso contrário
justification: Justificativa breve (máximo 1 frase) explicando a decisão`

// PublicSafety is the binary triage classifier. It decides whether an
// incident description concerns public safety at all; incidents it rejects
// are dropped before the more expensive stages.
type PublicSafety struct {
	client      llm.Client
	temperature float64
	maxTokens   int
	usage       *UsageLog
}

// NewPublicSafety creates the triage classifier. A lower temperature keeps
// the binary decision consistent across runs.
func NewPublicSafety(client llm.Client, usage *UsageLog) *PublicSafety {
	return &PublicSafety{
		client:      client,
		temperature: 0.3,
		maxTokens:   512,
		usage:       usage,
	}
}

// Name returns the stage discriminator.
func (c *PublicSafety) Name() string { return models.ClassificationPublicSafety }

// ClassifySingle classifies one incident. Empty descriptions are rejected
// locally without spending an LLM call.
func (c *PublicSafety) ClassifySingle(ctx context.Context, incident *models.Incident) models.SafetyResult {
	descricao := strings.TrimSpace(incident.Descricao)
	if descricao == "" {
		metrics.ClassificationsTotal.WithLabelValues(c.Name(), "skipped").Inc()
		return c.errorResult(incident.IDReport, "Empty description provided")
	}

	start := time.Now()
	resp, err := c.client.Generate(ctx, llm.Request{
		SystemPrompt: publicSafetySystemPrompt,
		UserPrompt:   "Descrição: " + descricao,
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
	})
	metrics.ClassificationDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("%s: error classifying report %s: %v", c.Name(), incident.IDReport, err)
		metrics.ClassificationsTotal.WithLabelValues(c.Name(), "error").Inc()
		return c.errorResult(incident.IDReport, err.Error())
	}

	c.usage.Record(c.Name(), incident.IDReport, "", resp.Model, c.temperature, resp)
	metrics.ClassificationsTotal.WithLabelValues(c.Name(), "ok").Inc()

	fields := llm.ParseFields(resp.Content, "is_related", "justification")
	return models.SafetyResult{
		IDReport:           incident.IDReport,
		IsRelated:          llm.ParseBool(fields["is_related"]),
		Justification:      fields["justification"],
		ClassificationType: models.ClassificationPublicSafety,
	}
}

// ClassifyBatch classifies incidents preserving input order. Individual
// failures become error results and never abort the batch.
func (c *PublicSafety) ClassifyBatch(ctx context.Context, incidents []*models.Incident, opts BatchOptions) []models.SafetyResult {
	return mapBatch(ctx, c.Name(), incidents, opts, c.ClassifySingle)
}

func (c *PublicSafety) errorResult(idReport, msg string) models.SafetyResult {
	return models.SafetyResult{
		IDReport:           idReport,
		IsRelated:          false,
		Justification:      fmt.Sprintf("Erro na classificação: %s", msg),
		ClassificationType: models.ClassificationPublicSafety,
	}
}
