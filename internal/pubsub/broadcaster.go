package pubsub

import (
	"context"
	"time"
	"walletpnl/internal/aggregate"
)

// Broadcaster publishes JSON-encoded payloads to a subject
type Broadcaster interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Health(ctx context.Context) error
}

// WalletSummaryEvent is emitted once per completed wallet analysis
type WalletSummaryEvent struct {
	ID          string                   `json:"id"`
	Address     string                   `json:"address"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Summary     *aggregate.GlobalSummary `json:"summary"`
}

// SummarySubject = "<prefix>.<address>"
func SummarySubject(prefix, address string) string {
	return prefix + "." + address
}

// Nop drops every message; used when NATS is disabled
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }
func (Nop) Health(context.Context) error                       { return nil }
