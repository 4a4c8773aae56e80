package classifier

import (
	"github.com/bluelight-labs/vigia/internal/llm"
	"github.com/bluelight-labs/vigia/internal/models"
)

// Set bundles the four classification stages over a shared model client and
// usage log.
type Set struct {
	Safety     *PublicSafety
	Categories *FixedCategories
	Entities   *EntityExtraction
	Relevance  *ContextRelevance
	Usage      *UsageLog
}

// NewSet builds all stages. categories may be nil to use the default
// vocabulary.
func NewSet(client llm.Client, categories []string) *Set {
	usage := NewUsageLog()
	return &Set{
		Safety:     NewPublicSafety(client, usage),
		Categories: NewFixedCategories(client, categories, usage),
		Entities:   NewEntityExtraction(client, usage),
		Relevance:  NewContextRelevance(client, usage),
		Usage:      usage,
	}
}

// StageNames lists the stage discriminators in pipeline order.
func StageNames() []string {
	return []string{
		models.ClassificationPublicSafety,
		models.ClassificationFixedCategories,
		models.ClassificationEntities,
		models.ClassificationRelevance,
	}
}
