package models

// Classification type discriminators. Every classifier result carries
// exactly one of these so downstream consumers can tell result shapes
// apart without null checks.
const (
	ClassificationPublicSafety    = "public_safety"
	ClassificationFixedCategories = "fixed_categories"
	ClassificationEntities        = "entity_extraction"
	ClassificationRelevance       = "context_relevance"
)

// SafetyResult is the output of the public-safety binary classifier.
type SafetyResult struct {
	IDReport           string `json:"id_report"`
	IsRelated          bool   `json:"is_related"`
	Justification      string `json:"justification"`
	ClassificationType string `json:"classification_type"`
}

// CategoriesResult is the output of the fixed-categories classifier.
// Categorias is always a non-empty subset of the configured vocabulary.
type CategoriesResult struct {
	IDReport           string   `json:"id_report"`
	Categorias         []string `json:"categorias"`
	ClassificationType string   `json:"classification_type"`
}

// EntitiesResult is the output of the entity/time extraction classifier.
// List fields are empty, never nil-with-meaning: sentinel values from the
// model ("não informado", "n/a") are filtered during parsing.
type EntitiesResult struct {
	IDReport       string   `json:"id_report"`
	EventTypes     []string `json:"event_types"`
	Locations      []string `json:"locations"`
	People         []string `json:"people"`
	EventTime      []string `json:"event_time"`
	Reasoning      []string `json:"reasoning"`
	ExtractionType string   `json:"extraction_type"`
}

// RelevanceResult is the output of the context-relevance classifier for one
// (incident, context) pair.
type RelevanceResult struct {
	IDRelacao          string `json:"id_relacao"`
	IDReport           string `json:"id_report"`
	ContextoID         string `json:"contexto_id"`
	IsRelevant         bool   `json:"is_relevant"`
	RelevanceReasoning string `json:"relevance_reasoning"`
	AnalysisType       string `json:"analysis_type"`
}

// RelevancePrompt is one rendered (incident, context) prompt, the unit of
// work for the relevance classifier. IDRelacao is the deterministic
// fingerprint used to skip pairs already judged in a previous run.
type RelevancePrompt struct {
	IDRelacao  string `json:"id_relacao"`
	IDReport   string `json:"id_report"`
	ContextoID string `json:"contexto_id"`
	PromptLLM  string `json:"prompt_llm"`
}
