package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cuotas/internal/core"
)

const maxBodyBytes = 1 << 20

// amountField accepts 30, 30.5 or "30,50".
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	if s == "null" {
		s = ""
	}
	*a = amountField(s)
	return nil
}

func (a amountField) Money() (core.Money, error) {
	return core.ParseMoney(string(a))
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Invalid("", "request body is empty")
		}
		return core.Invalid("", "malformed JSON: "+err.Error())
	}
	if dec.More() {
		return core.Invalid("", "request body must contain one JSON object")
	}
	return nil
}

// parseDateField parses an optional YYYY-MM-DD value for field.
func parseDateField(field, value string) (core.Date, error) {
	value = sanitizeInput(value)
	if value == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(value)
	if err != nil {
		return core.Date{}, core.Invalid(field, "expected a date as YYYY-MM-DD")
	}
	return d, nil
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
