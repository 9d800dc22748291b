package mongo

import (
	"time"

	"tripspese/internal/core"
)

type expenseModel struct {
	ID           string    `bson:"_id"`
	Seq          int64     `bson:"seq"`
	Category     string    `bson:"category"`
	Participants []string  `bson:"participants"`
	Note         string    `bson:"note"`
	Amount       float64   `bson:"amount"`
	ShareAmount  float64   `bson:"share_amount"`
	CreatedBy    string    `bson:"created_by,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
	Active       *bool     `bson:"active,omitempty"`
}

func toModel(e core.Expense, seq int64) expenseModel {
	active := e.Active
	return expenseModel{
		ID:           e.ID,
		Seq:          seq,
		Category:     e.Category,
		Participants: append([]string(nil), e.Participants...),
		Note:         e.Note,
		Amount:       e.Amount,
		ShareAmount:  e.ShareAmount,
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt.UTC(),
		UpdatedAt:    e.UpdatedAt.UTC(),
		Active:       &active,
	}
}

func (m *expenseModel) toExpense() core.Expense {
	e := core.Expense{
		ID:           m.ID,
		Category:     m.Category,
		Participants: m.Participants,
		Note:         m.Note,
		Amount:       m.Amount,
		ShareAmount:  m.ShareAmount,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
		Active:       m.Active == nil || *m.Active,
	}
	if e.Participants == nil {
		e.Participants = []string{}
	}
	if e.CreatedBy == "" {
		e.CreatedBy = core.DefaultCreatedBy
	}
	if e.ShareAmount == 0 && len(e.Participants) > 0 {
		e.ShareAmount = core.ComputeShare(e.Amount, len(e.Participants))
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	return e
}
