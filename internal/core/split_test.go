package core

import (
	"errors"
	"math"
	"strings"
	"testing"
)

var (
	testCategories = []string{"fuel", "tolls", "food", "transport", "personal", "lodging", "entertainment", "other"}
	testRoster     = []string{"Dattu", "Ganesh", "Ramkrushna", "Shubham", "Jalindar"}
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(testCategories, testRoster, DefaultSelectAll)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestComputeShare(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		count  int
		want   float64
	}{
		{"two people", 100, 2, 50},
		{"one person", 42.5, 1, 42.5},
		{"three people lossy", 100, 3, 100.0 / 3},
		{"five people", 250, 5, 50},
		{"no participants", 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeShare(tt.amount, tt.count); got != tt.want {
				t.Errorf("ComputeShare(%v, %d) = %v, want %v", tt.amount, tt.count, got, tt.want)
			}
		})
	}
}

func TestComputeShareMatchesDivision(t *testing.T) {
	amounts := []float64{0.01, 1, 9.99, 100, 1234.56, 99999.99}
	for _, a := range amounts {
		for n := 1; n <= len(testRoster); n++ {
			if got := ComputeShare(a, n); got != a/float64(n) {
				t.Fatalf("share(%v, %d) = %v", a, n, got)
			}
		}
	}
	// Shares are not reconciled to the cent: three shares of 100/3 only
	// approximate the amount.
	if sum := 3 * ComputeShare(100, 3); math.Abs(sum-100) > 1e-9 {
		t.Fatalf("sum of shares drifted too far: %v", sum)
	}
}

func TestCatalogValidate(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		name      string
		in        ExpenseInput
		wantErr   bool
		wantField string
		wantMsg   string
		check     func(t *testing.T, v ValidExpense)
	}{
		{
			name: "valid food split",
			in:   ExpenseInput{Category: "food", Participants: []string{"Dattu", "Ganesh"}, Amount: "100"},
			check: func(t *testing.T, v ValidExpense) {
				if v.ShareAmount != 50 || v.Amount != 100 {
					t.Errorf("amount=%v share=%v", v.Amount, v.ShareAmount)
				}
				if strings.Join(v.Participants, ",") != "Dattu,Ganesh" {
					t.Errorf("participants = %v", v.Participants)
				}
			},
		},
		{
			name: "select-all is dropped and order kept",
			in:   ExpenseInput{Category: "fuel", Participants: []string{"All", "Shubham", "Dattu"}, Amount: "30"},
			check: func(t *testing.T, v ValidExpense) {
				if strings.Join(v.Participants, ",") != "Shubham,Dattu" {
					t.Errorf("participants = %v", v.Participants)
				}
				if v.ShareAmount != 15 {
					t.Errorf("share = %v", v.ShareAmount)
				}
			},
		},
		{
			name:      "only select-all is empty",
			in:        ExpenseInput{Category: "food", Participants: []string{"All"}, Amount: "10"},
			wantErr:   true,
			wantField: "participants",
			wantMsg:   "at least one participant",
		},
		{
			name:      "no participants",
			in:        ExpenseInput{Category: "food", Participants: nil, Amount: "10"},
			wantErr:   true,
			wantField: "participants",
		},
		{
			name:      "unknown participant is named",
			in:        ExpenseInput{Category: "food", Participants: []string{"Dattu", "Mallory"}, Amount: "10"},
			wantErr:   true,
			wantField: "participants",
			wantMsg:   "Mallory",
		},
		{
			name:      "duplicate participant",
			in:        ExpenseInput{Category: "food", Participants: []string{"Dattu", "Dattu"}, Amount: "10"},
			wantErr:   true,
			wantField: "participants",
			wantMsg:   "duplicate",
		},
		{
			name:      "category is case-sensitive",
			in:        ExpenseInput{Category: "Food", Participants: []string{"Dattu"}, Amount: "10"},
			wantErr:   true,
			wantField: "category",
		},
		{
			name:      "missing category",
			in:        ExpenseInput{Participants: []string{"Dattu"}, Amount: "10"},
			wantErr:   true,
			wantField: "category",
		},
		{
			name:      "zero amount",
			in:        ExpenseInput{Category: "food", Participants: []string{"Dattu"}, Amount: "0"},
			wantErr:   true,
			wantField: "amount",
		},
		{
			name:      "negative amount",
			in:        ExpenseInput{Category: "food", Participants: []string{"Dattu"}, Amount: "-5"},
			wantErr:   true,
			wantField: "amount",
		},
		{
			name:      "non-numeric amount",
			in:        ExpenseInput{Category: "food", Participants: []string{"Dattu"}, Amount: "lots"},
			wantErr:   true,
			wantField: "amount",
		},
		{
			name:      "note too long",
			in:        ExpenseInput{Category: "food", Participants: []string{"Dattu"}, Amount: "1", Note: strings.Repeat("x", MaxNoteLength+1)},
			wantErr:   true,
			wantField: "note",
		},
		{
			name: "note at the limit in multibyte runes",
			in:   ExpenseInput{Category: "food", Participants: []string{"Dattu"}, Amount: "1", Note: strings.Repeat("₹", MaxNoteLength)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Validate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
				found := false
				for _, f := range ve.Fields {
					if f.Field == tt.wantField && strings.Contains(f.Message, tt.wantMsg) {
						found = true
					}
				}
				if !found {
					t.Fatalf("missing %s error containing %q in %v", tt.wantField, tt.wantMsg, ve.Fields)
				}
				return
			}
			if tt.check != nil {
				tt.check(t, v)
			}
		})
	}
}

func TestCatalogValidateReportsEveryField(t *testing.T) {
	c := testCatalog(t)
	_, err := c.Validate(ExpenseInput{Category: "spa", Participants: []string{"Eve"}, Amount: "x"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(ve.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %v", ve.Fields)
	}
}

func TestNewCatalog(t *testing.T) {
	c := testCatalog(t)
	roster := c.Roster()
	want := []string{"Dattu", "Ganesh", "Jalindar", "Ramkrushna", "Shubham"}
	if strings.Join(roster, ",") != strings.Join(want, ",") {
		t.Fatalf("roster = %v, want %v", roster, want)
	}
	roster[0] = "changed"
	if c.Roster()[0] != "Dattu" {
		t.Fatalf("Roster must return a copy")
	}
	if c.IsMember("All") {
		t.Fatalf("select-all must not be a roster member")
	}

	if _, err := NewCatalog(nil, testRoster, "All"); err == nil {
		t.Fatalf("expected error for empty categories")
	}
	if _, err := NewCatalog(testCategories, []string{"A", "A"}, "All"); err == nil {
		t.Fatalf("expected error for duplicate roster member")
	}
	if _, err := NewCatalog(testCategories, []string{"All"}, "All"); err == nil {
		t.Fatalf("expected error for roster member equal to select-all")
	}
}
