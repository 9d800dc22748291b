package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewExpenseDerivesShare(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	e := NewExpense("id-1", "food", []string{"Dattu", "Ganesh"}, "", 100, "", now)

	if e.ShareAmount != 50 {
		t.Fatalf("share = %v, want 50", e.ShareAmount)
	}
	if !e.Active {
		t.Fatalf("new expense must be active")
	}
	if !e.CreatedAt.Equal(now) || !e.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not set to now: %v %v", e.CreatedAt, e.UpdatedAt)
	}
	if e.CreatedBy != DefaultCreatedBy {
		t.Fatalf("createdBy = %q, want %q", e.CreatedBy, DefaultCreatedBy)
	}
	if got := e.FormattedDate(); got != "Mar 14, 2025" {
		t.Fatalf("formatted date = %q", got)
	}
}

func TestExpenseCloneIsIndependent(t *testing.T) {
	e := NewExpense("id-1", "food", []string{"Dattu", "Ganesh"}, "", 10, "", time.Now())
	c := e.Clone()
	c.Participants[0] = "Shubham"
	if e.Participants[0] != "Dattu" {
		t.Fatalf("clone shares participant slice with original")
	}
	if !e.HasParticipant("Ganesh") || e.HasParticipant("Shubham") {
		t.Fatalf("HasParticipant mismatch: %v", e.Participants)
	}
}

func TestParseID(t *testing.T) {
	id := NewID()
	got, err := ParseID("  " + id + " ")
	if err != nil || got != id {
		t.Fatalf("ParseID(%q) = %q, %v", id, got, err)
	}
	for _, bad := range []string{"", "   ", "123", "not-a-uuid", "64f1c2e5a1b2c3d4e5f6a7b8"} {
		if _, err := ParseID(bad); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("ParseID(%q) expected ErrInvalidID, got %v", bad, err)
		}
	}
}

func TestSummaryAndPagination(t *testing.T) {
	if s := NewSummary(0, 0); s.TotalAmount != 0 || s.TotalCount != 0 || s.AverageAmount != 0 {
		t.Fatalf("empty summary = %+v", s)
	}
	if s := NewSummary(100, 3); s.AverageAmount != 33.33 {
		t.Fatalf("average = %v, want 33.33", s.AverageAmount)
	}

	p := NewPagination(2, 10, 15)
	if p.TotalPages != 2 || p.HasNext || !p.HasPrev {
		t.Fatalf("page 2 of 15 = %+v", p)
	}
	p = NewPagination(1, 10, 15)
	if !p.HasNext || p.HasPrev {
		t.Fatalf("page 1 of 15 = %+v", p)
	}
	p = NewPagination(1, 10, 0)
	if p.TotalPages != 0 || p.HasNext || p.HasPrev {
		t.Fatalf("empty pagination = %+v", p)
	}
	p = NewPagination(1, 5, 10)
	if p.TotalPages != 2 || !p.HasNext {
		t.Fatalf("page 1 of 10 by 5 = %+v", p)
	}
	p = NewPagination(1<<61+1, 8, 15)
	if p.TotalPages != 2 || p.HasNext || !p.HasPrev {
		t.Fatalf("far past the last page = %+v", p)
	}
}

func TestValidationErrorMessagesNameFields(t *testing.T) {
	ve := &ValidationError{}
	ve.Add("page", "must be a positive integer")
	ve.Add("pageSize", "must be between 1 and %d", 100)
	want := []string{"page: must be a positive integer", "pageSize: must be between 1 and 100"}
	got := ve.Messages()
	if len(got) != len(want) {
		t.Fatalf("Messages() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Messages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidationErrorIs(t *testing.T) {
	ve := NewValidationError("amount", "bad %s", "value")
	var err error = ve
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ValidationError must match ErrValidation")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("ValidationError must not match ErrNotFound")
	}
	if got := ve.Error(); got != "validation failed: amount: bad value" {
		t.Fatalf("Error() = %q", got)
	}

	wrapped := StorageError("insert", errors.New("disk full"))
	if !errors.Is(wrapped, ErrStorage) {
		t.Fatalf("StorageError must match ErrStorage: %v", wrapped)
	}
}

func TestPersonTotals(t *testing.T) {
	roster := []string{"Dattu", "Ganesh", "Jalindar"}
	now := time.Now()
	expenses := []Expense{
		NewExpense(NewID(), "food", []string{"Dattu", "Ganesh"}, "", 100, "", now),
		NewExpense(NewID(), "fuel", []string{"Ganesh", "Mallory"}, "", 30, "", now),
	}

	got := PersonTotals(roster, expenses)
	want := []PersonTotal{{"Dattu", 50}, {"Ganesh", 65}, {"Jalindar", 0}}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("totals[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	r := NewReport(now, roster, expenses)
	if r.GrandTotal != 115 {
		t.Errorf("GrandTotal = %v, want 115", r.GrandTotal)
	}
	if empty := PersonTotals(roster, nil); empty[2].TotalAmount != 0 || len(empty) != 3 {
		t.Errorf("empty ledger totals = %+v", empty)
	}
}
