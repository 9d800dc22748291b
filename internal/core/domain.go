package core

import (
	"strings"
	"time"
)

const (
	// MaxNoteLength is the maximum number of characters stored in a note.
	MaxNoteLength = 500

	// DefaultCreatedBy is recorded when the caller does not identify itself.
	DefaultCreatedBy = "System"

	// DisplayDateLayout renders dates as "Jan 2, 2006".
	DisplayDateLayout = "Jan 2, 2006"
)

type (
	// Expense is a single ledger record. Values returned by stores are copies;
	// callers must not expect mutations to be persisted.
	Expense struct {
		ID           string
		Category     string
		Participants []string
		Note         string
		Amount       float64
		ShareAmount  float64 // derived: Amount / len(Participants)
		CreatedBy    string
		CreatedAt    time.Time
		UpdatedAt    time.Time
		Active       bool
	}

	// ExpenseInput is the raw creation request as received from a transport.
	// Amount is kept as text so non-numeric input can be rejected with a
	// field-level message.
	ExpenseInput struct {
		Category     string
		Participants []string
		Note         string
		Amount       string
		CreatedBy    string
	}

	// PersonTotal is the running share owed by one roster member.
	PersonTotal struct {
		Name        string
		TotalAmount float64
	}
)

// NewExpense builds an active record from validated fields. The share is
// always derived here so it can never be set independently.
func NewExpense(id string, category string, participants []string, note string, amount float64, createdBy string, now time.Time) Expense {
	if strings.TrimSpace(createdBy) == "" {
		createdBy = DefaultCreatedBy
	}
	parts := append([]string(nil), participants...)
	return Expense{
		ID:           id,
		Category:     category,
		Participants: parts,
		Note:         note,
		Amount:       amount,
		ShareAmount:  ComputeShare(amount, len(parts)),
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		Active:       true,
	}
}

// FormattedDate returns the creation date for display.
func (e Expense) FormattedDate() string {
	return e.CreatedAt.Format(DisplayDateLayout)
}

// HasParticipant reports whether name is one of the expense participants.
func (e Expense) HasParticipant(name string) bool {
	for _, p := range e.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (e Expense) Clone() Expense {
	c := e
	c.Participants = append([]string(nil), e.Participants...)
	return c
}
