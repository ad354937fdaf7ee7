package warehouse

import (
	"strconv"
	"strings"
	"time"
)

// Coercion helpers turn the API's string-typed fields into typed
// columns. Unparseable values become nil rather than failing, the
// invariant checks downstream decide which nulls are fatal.

func coerceInt(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func coerceFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

const dateLayout = "2006-01-02"

func coerceDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func coerceString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
