package model

import "time"

// QueueItem is one unit of work in the atendimento queue. Rows are never
// deleted by the engine; terminal items stay around for audit.
type QueueItem struct {
	ID          int64          `json:"id"`
	Phone       string         `json:"phone"`
	Message     string         `json:"message"`
	Priority    int            `json:"priority"`
	Status      Status         `json:"status"`
	RetryCount  int            `json:"retry_count"`
	LastError   *string        `json:"last_error,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}
