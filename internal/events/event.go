// Package events publishes checkout audit events. Publishing is best effort:
// callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeDuplicatesDetected Type = "checkout.duplicates_detected"
	TypeDuplicatesIgnored  Type = "checkout.duplicates_ignored"
	TypeOrderPlaced        Type = "checkout.order_placed"
)

type Event struct {
	ID         string    `json:"event_id"`
	Type       Type      `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     int64     `json:"user_id"`
	Payload    any       `json:"payload,omitempty"`
}

type DuplicatesDetected struct {
	ProductIDs []int64 `json:"product_ids"`
	OrderIDs   []int64 `json:"order_ids"`
}

type OrderPlaced struct {
	OrderID           int64   `json:"order_id"`
	ProductIDs        []int64 `json:"product_ids"`
	IgnoredDuplicates bool    `json:"ignored_duplicates"`
}

func New(t Type, userID int64, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		UserID:     userID,
		Payload:    payload,
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
