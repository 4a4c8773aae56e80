package classifier

import (
	"sync"
	"time"

	"github.com/bluelight-labs/vigia/internal/llm"
	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

// UsageLog accumulates per-call token usage across a batch. It is safe for
// concurrent use by the batch workers.
type UsageLog struct {
	mu      sync.Mutex
	entries []models.UsageLogEntry
}

// NewUsageLog returns an empty usage log.
func NewUsageLog() *UsageLog {
	return &UsageLog{}
}

// Record appends one LLM call's usage and updates the token counters.
func (u *UsageLog) Record(stage, idReport, contextoID, model string, temperature float64, resp llm.Response) {
	entry := models.UsageLogEntry{
		Etapa:            stage,
		IDReport:         idReport,
		ContextoID:       contextoID,
		Model:            model,
		Temperature:      temperature,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Custo:            resp.Cost,
		DateExecution:    time.Now().UTC(),
	}

	u.mu.Lock()
	u.entries = append(u.entries, entry)
	u.mu.Unlock()

	metrics.TokensTotal.WithLabelValues(stage, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.TokensTotal.WithLabelValues(stage, "completion").Add(float64(resp.Usage.CompletionTokens))
	metrics.CostTotal.WithLabelValues(stage).Add(resp.Cost)
}

// Entries returns a copy of the accumulated entries.
func (u *UsageLog) Entries() []models.UsageLogEntry {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]models.UsageLogEntry, len(u.entries))
	copy(out, u.entries)
	return out
}

// Reset discards accumulated entries, typically at the start of a batch.
func (u *UsageLog) Reset() {
	u.mu.Lock()
	u.entries = nil
	u.mu.Unlock()
}

// UsageSummary aggregates a usage log.
type UsageSummary struct {
	TotalTokens         int
	TotalCost           float64
	TotalRequests       int
	AvgTokensPerRequest float64
}

// Summary computes totals over the accumulated entries.
func (u *UsageLog) Summary() UsageSummary {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := UsageSummary{TotalRequests: len(u.entries)}
	for _, e := range u.entries {
		s.TotalTokens += e.TotalTokens
		s.TotalCost += e.Custo
	}
	if s.TotalRequests > 0 {
		s.AvgTokensPerRequest = float64(s.TotalTokens) / float64(s.TotalRequests)
	}
	return s
}
