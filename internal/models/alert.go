package models

import (
	"time"
)

// Alert is a deduplicated, requester-scoped notification. ID is a pure
// function of (sorted relation ids, requester, whole-city flag, execution
// date): re-running the pipeline over identical inputs yields the same ID,
// which is how already-sent alerts are detected against history.
type Alert struct {
	ID           string    `json:"id_alerta"`
	Solicitante  string    `json:"solicitante"`
	IDReport     string    `json:"id_report"`
	WholeCity    bool      `json:"cidade_inteira"`
	Message      string    `json:"mensagem"`
	RelationIDs  []string  `json:"relacoes"`
	ContextNames []string  `json:"contextos_relacionados"`
	CreatedAt    time.Time `json:"timestamp_creation"`
}

// AlertHistoryEntry is one persisted record of an alert. The row is written
// before delivery and marked sent afterwards, so a crash between the two
// still suppresses the duplicate on the next run.
type AlertHistoryEntry struct {
	ID          string    `json:"id"`
	AlertID     string    `json:"alert_id"`
	Solicitante string    `json:"solicitante"`
	IDReport    string    `json:"id_report"`
	WholeCity   bool      `json:"cidade_inteira"`
	Message     string    `json:"mensagem"`
	Sent        bool      `json:"sent"`
	SentAt      time.Time `json:"sent_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// UsageLogEntry is one persisted record of a single LLM call, mirrored to
// the warehouse for cost auditing.
type UsageLogEntry struct {
	Etapa            string    `json:"etapa"`
	IDReport         string    `json:"id_report"`
	ContextoID       string    `json:"contexto_id"`
	Model            string    `json:"model"`
	Temperature      float64   `json:"temperature"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Custo            float64   `json:"custo"`
	DateExecution    time.Time `json:"date_execution"`
}
