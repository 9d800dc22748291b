package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Ledger event types.
const (
	EventExpenseCreated = "expense.created"
	EventExpenseDeleted = "expense.deleted"
)

// LedgerEvent announces a committed write. Consumers re-read the ledger
// rather than trusting the payload, so it carries only what logs need.
type LedgerEvent struct {
	Type      string    `json:"type"`
	ExpenseID string    `json:"expense_id"`
	Category  string    `json:"category,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event of eventType for expenseID.
func NewLedgerEvent(eventType, expenseID string) LedgerEvent {
	return LedgerEvent{
		Type:      eventType,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, err
	}
	switch e.Type {
	case EventExpenseCreated, EventExpenseDeleted:
	default:
		return LedgerEvent{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ExpenseID == "" {
		return LedgerEvent{}, errors.New("event without expense id")
	}
	return e, nil
}
