package classifier

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bluelight-labs/vigia/internal/llm"
	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

// ContextRelevance judges whether an incident matters for a monitored
// context. Unlike the other stages it receives fully rendered prompts; the
// pairing and template work happens upstream.
type ContextRelevance struct {
	client      llm.Client
	temperature float64
	maxTokens   int
	usage       *UsageLog
}

// NewContextRelevance creates the relevance classifier.
func NewContextRelevance(client llm.Client, usage *UsageLog) *ContextRelevance {
	return &ContextRelevance{
		client:      client,
		temperature: 0.5,
		maxTokens:   1024,
		usage:       usage,
	}
}

// Name returns the stage discriminator.
func (c *ContextRelevance) Name() string { return models.ClassificationRelevance }

// ClassifySingle judges one rendered (incident, context) prompt.
func (c *ContextRelevance) ClassifySingle(ctx context.Context, p models.RelevancePrompt) models.RelevanceResult {
	if p.PromptLLM == "" {
		metrics.ClassificationsTotal.WithLabelValues(c.Name(), "skipped").Inc()
		return c.errorResult(p, "empty prompt")
	}

	start := time.Now()
	resp, err := c.client.Generate(ctx, llm.Request{
		UserPrompt:  p.PromptLLM,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	metrics.ClassificationDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("%s: error analyzing relation %s: %v", c.Name(), p.IDRelacao, err)
		metrics.ClassificationsTotal.WithLabelValues(c.Name(), "error").Inc()
		return c.errorResult(p, err.Error())
	}

	c.usage.Record(c.Name(), p.IDReport, p.ContextoID, resp.Model, c.temperature, resp)
	metrics.ClassificationsTotal.WithLabelValues(c.Name(), "ok").Inc()

	fields := llm.ParseFields(resp.Content, "is_relevant", "relevance_reasoning")
	return models.RelevanceResult{
		IDRelacao:          p.IDRelacao,
		IDReport:           p.IDReport,
		ContextoID:         p.ContextoID,
		IsRelevant:         llm.ParseBool(fields["is_relevant"]),
		RelevanceReasoning: fields["relevance_reasoning"],
		AnalysisType:       models.ClassificationRelevance,
	}
}

// ClassifyBatch judges prompts preserving input order.
func (c *ContextRelevance) ClassifyBatch(ctx context.Context, prompts []models.RelevancePrompt, opts BatchOptions) []models.RelevanceResult {
	return mapBatch(ctx, c.Name(), prompts, opts, c.ClassifySingle)
}

func (c *ContextRelevance) errorResult(p models.RelevancePrompt, msg string) models.RelevanceResult {
	return models.RelevanceResult{
		IDRelacao:          p.IDRelacao,
		IDReport:           p.IDReport,
		ContextoID:         p.ContextoID,
		IsRelevant:         false,
		RelevanceReasoning: fmt.Sprintf("Erro na análise: %s", msg),
		AnalysisType:       models.ClassificationRelevance,
	}
}
