package session

import "context"

// Store keeps per-phone conversation state between messages.
type Store interface {
	Save(ctx context.Context, phone string, data map[string]any) error
	Load(ctx context.Context, phone string) (map[string]any, error)
}
