package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tripspese/internal/core"
	"tripspese/internal/services"
)

// RequestBodyParser reads a JSON or form-encoded body once and serves
// field lookups from whichever encoding it found.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most limit bytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request, limit int64) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("decode form body: %w", p.err)
	}
	return p.err
}

// Get returns the first of keys present in the body, sanitized.
func (p *RequestBodyParser) Get(keys ...string) string {
	for _, key := range keys {
		if p.jsonData != nil {
			if val, ok := p.jsonData[key]; ok {
				return sanitizeInput(stringValue(val))
			}
			continue
		}
		if p.formData != nil && p.formData.Has(key) {
			return sanitizeInput(p.formData.Get(key))
		}
	}
	return ""
}

// GetList returns the values of the first of keys present in the body. A
// JSON string or a single form value yields a one-element list.
func (p *RequestBodyParser) GetList(keys ...string) []string {
	for _, key := range keys {
		if p.jsonData != nil {
			val, ok := p.jsonData[key]
			if !ok {
				continue
			}
			switch v := val.(type) {
			case []any:
				out := make([]string, 0, len(v))
				for _, item := range v {
					out = append(out, sanitizeInput(stringValue(item)))
				}
				return out
			case nil:
				return nil
			default:
				return []string{sanitizeInput(stringValue(v))}
			}
		}
		if p.formData != nil && p.formData.Has(key) {
			out := make([]string, 0, len(p.formData[key]))
			for _, item := range p.formData[key] {
				out = append(out, sanitizeInput(item))
			}
			return out
		}
	}
	return nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON scalar to its text form.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims s and drops control characters other than tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// expenseInput maps a create body onto the ledger input. Both the current
// field names and the ones used by earlier clients are accepted.
func expenseInput(p *RequestBodyParser) core.ExpenseInput {
	return core.ExpenseInput{
		Category:     p.Get("category", "expenseType"),
		Participants: p.GetList("participants", "splitBetween"),
		Note:         p.Get("note"),
		Amount:       p.Get("amount"),
		CreatedBy:    p.Get("createdBy"),
	}
}

// deleteSecret takes the secret from the body, falling back to the
// X-Delete-Secret header.
func deleteSecret(r *http.Request, p *RequestBodyParser) string {
	if secret := p.Get("secret", "password"); secret != "" {
		return secret
	}
	return strings.TrimSpace(r.Header.Get("X-Delete-Secret"))
}

// ParseListRequest reads paging and filters from the query string. Absent
// paging falls back to page 1 and defaultPageSize; present but non-numeric
// values are rejected. Range checks are left to the query service.
func ParseListRequest(q url.Values, defaultPageSize int) (services.ListRequest, error) {
	ve := &core.ValidationError{}
	req := services.ListRequest{
		Category:    firstQuery(q, "category", "expenseType"),
		Participant: firstQuery(q, "person", "participant"),
		Page:        1,
		PageSize:    defaultPageSize,
	}

	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			ve.Add("page", "must be a positive integer")
		}
		req.Page = n
	}
	if v := strings.TrimSpace(firstQuery(q, "limit", "pageSize")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			ve.Add("pageSize", "must be a positive integer")
		}
		req.PageSize = n
	}
	return req, ve.OrNil()
}

func firstQuery(q url.Values, keys ...string) string {
	for _, k := range keys {
		if q.Has(k) {
			return strings.TrimSpace(q.Get(k))
		}
	}
	return ""
}

// isBodyTooLarge reports whether err came from the body size limit.
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
