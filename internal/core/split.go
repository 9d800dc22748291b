package core

import (
	"strings"
	"unicode/utf8"
)

// ValidExpense is an input that passed every catalog rule.
type ValidExpense struct {
	Category     string
	Participants []string
	Note         string
	Amount       float64
	ShareAmount  float64
	CreatedBy    string
}

// ComputeShare divides amount equally among count participants. Shares are
// not reconciled: count*share may differ from amount by rounding error.
func ComputeShare(amount float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return amount / float64(count)
}

// NormalizeParticipants trims entries and drops the select-all token. It
// keeps the caller's order and does not deduplicate.
func (c *Catalog) NormalizeParticipants(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || p == c.selectAll {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Validate checks a creation request against the catalog and computes the
// per-participant share. Every violated field is reported at once.
func (c *Catalog) Validate(in ExpenseInput) (ValidExpense, error) {
	ve := &ValidationError{}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		ve.Add("amount", "%s", ErrInvalidAmount.Error())
	}

	category := in.Category
	switch {
	case strings.TrimSpace(category) == "":
		ve.Add("category", "category is required")
	case !c.IsCategory(category):
		ve.Add("category", "invalid category %q", category)
	}

	participants := c.NormalizeParticipants(in.Participants)
	var invalid, dups []string
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if !c.IsMember(p) {
			invalid = append(invalid, p)
			continue
		}
		if _, ok := seen[p]; ok {
			dups = append(dups, p)
			continue
		}
		seen[p] = struct{}{}
	}
	switch {
	case len(invalid) > 0:
		ve.Add("participants", "invalid participants: %s", strings.Join(invalid, ", "))
	case len(participants) == 0:
		ve.Add("participants", "at least one participant must be selected")
	}
	if len(dups) > 0 {
		ve.Add("participants", "duplicate participants: %s", strings.Join(dups, ", "))
	}

	if n := utf8.RuneCountInString(in.Note); n > MaxNoteLength {
		ve.Add("note", "note too long (%d characters, max %d)", n, MaxNoteLength)
	}

	if err := ve.OrNil(); err != nil {
		return ValidExpense{}, err
	}

	return ValidExpense{
		Category:     category,
		Participants: participants,
		Note:         in.Note,
		Amount:       amount,
		ShareAmount:  ComputeShare(amount, len(participants)),
		CreatedBy:    strings.TrimSpace(in.CreatedBy),
	}, nil
}
