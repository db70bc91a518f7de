package model

import "time"

type SinistroStatus string

const (
	SinistroOpen     SinistroStatus = "OPEN"
	SinistroInReview SinistroStatus = "IN_REVIEW"
	SinistroClosed   SinistroStatus = "CLOSED"
	SinistroRejected SinistroStatus = "REJECTED"
)

// Sinistro is a registered insurance claim, created at the end of the
// sinistro workflow with a generated protocol number.
type Sinistro struct {
	ID         int64          `json:"id"`
	CustomerID *int64         `json:"customer_id,omitempty"`
	Protocol   string         `json:"protocol"`
	Status     SinistroStatus `json:"status"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
