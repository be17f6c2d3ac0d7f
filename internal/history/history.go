package history

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}

// Store keeps a bounded rolling window of turns per customer.
type Store interface {
	Load(ctx context.Context, phone string) ([]Turn, error)
	Append(ctx context.Context, phone string, turns ...Turn) error
	Clear(ctx context.Context, phone string) error
}
