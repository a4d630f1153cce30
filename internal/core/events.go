package core

import (
	"context"
	"time"
)

// EventType names a domain event published after a state change.
type EventType string

const (
	EventAccessRequested      EventType = "access.requested"
	EventAccessApproved       EventType = "access.approved"
	EventAccessRejected       EventType = "access.rejected"
	EventLedgerOnboarded      EventType = "ledger.onboarded"
	EventTransactionsAppended EventType = "transactions.appended"
	EventBudgetsUpdated       EventType = "budgets.updated"
)

// Event records who did what to whom.
type Event struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	Actor    string    `json:"actor"`
	Subject  string    `json:"subject"`
	LedgerID string    `json:"ledgerId,omitempty"`
	Count    int       `json:"count,omitempty"`
	Details  string    `json:"details,omitempty"`
	At       time.Time `json:"at"`
}

// EventPublisher delivers events to interested consumers. Implementations
// must not block ledger writes on delivery failure.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
