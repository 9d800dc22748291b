package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DefaultSelectAll is the UI pseudo-participant meaning "everyone".
const DefaultSelectAll = "All"

// Catalog holds the fixed category enumeration and participant roster.
// It is built once at startup and never mutated afterwards.
type Catalog struct {
	categories []string
	roster     []string
	selectAll  string

	categorySet map[string]struct{}
	rosterSet   map[string]struct{}
}

// NewCatalog validates and freezes the enumerations. Entries are matched
// exactly (case-sensitive); surrounding whitespace is trimmed.
func NewCatalog(categories, roster []string, selectAll string) (*Catalog, error) {
	c := &Catalog{
		selectAll:   strings.TrimSpace(selectAll),
		categorySet: make(map[string]struct{}),
		rosterSet:   make(map[string]struct{}),
	}

	var errs []error
	for _, v := range categories {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := c.categorySet[v]; dup {
			errs = append(errs, fmt.Errorf("duplicate category %q", v))
			continue
		}
		c.categorySet[v] = struct{}{}
		c.categories = append(c.categories, v)
	}
	for _, v := range roster {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if v == c.selectAll {
			errs = append(errs, fmt.Errorf("roster member %q collides with the select-all token", v))
			continue
		}
		if _, dup := c.rosterSet[v]; dup {
			errs = append(errs, fmt.Errorf("duplicate roster member %q", v))
			continue
		}
		c.rosterSet[v] = struct{}{}
		c.roster = append(c.roster, v)
	}
	if len(c.categories) == 0 {
		errs = append(errs, errors.New("at least one category is required"))
	}
	if len(c.roster) == 0 {
		errs = append(errs, errors.New("at least one roster member is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Categories returns the enumeration in configured order.
func (c *Catalog) Categories() []string {
	return slices.Clone(c.categories)
}

// Roster returns the participants sorted alphabetically.
func (c *Catalog) Roster() []string {
	out := slices.Clone(c.roster)
	slices.Sort(out)
	return out
}

// SelectAll returns the pseudo-participant token.
func (c *Catalog) SelectAll() string {
	return c.selectAll
}

// IsCategory reports whether v is a member of the category enumeration.
func (c *Catalog) IsCategory(v string) bool {
	_, ok := c.categorySet[v]
	return ok
}

// IsMember reports whether name belongs to the roster.
func (c *Catalog) IsMember(name string) bool {
	_, ok := c.rosterSet[name]
	return ok
}
