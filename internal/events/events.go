// Package events publishes ledger domain events.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Kind names a domain event. It doubles as the AMQP routing key.
type Kind string

const (
	GroupCreated    Kind = "group.created"
	GroupDeleted    Kind = "group.deleted"
	ExpenseRecorded Kind = "expense.recorded"
	ExpenseUpdated  Kind = "expense.updated"
	ExpenseDeleted  Kind = "expense.deleted"
)

// Kinds lists every event kind.
var Kinds = []Kind{GroupCreated, GroupDeleted, ExpenseRecorded, ExpenseUpdated, ExpenseDeleted}

var ErrUnknownKind = errors.New("unknown event kind")

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Event is published after a successful write.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	GroupID    int64     `json:"group_id"`
	ExpenseID  int64     `json:"expense_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New returns an event with a fresh ID.
func New(kind Kind, groupID, expenseID int64, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		GroupID:    groupID,
		ExpenseID:  expenseID,
		OccurredAt: at.UTC(),
	}
}

// ToJSON encodes the message body. Events of an unknown kind are refused so
// nothing is routed under a key no consumer binds.
func (e Event) ToJSON() ([]byte, error) {
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	return json.Marshal(e)
}

// Publisher delivers events. Publishing happens after the write has been
// committed, so a failed publish never undoes a ledger change.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when AMQP is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
