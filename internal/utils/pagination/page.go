package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Page is an offset window over an ordered listing.
type Page struct {
	Limit  int
	Offset int
}

// Parse reads raw limit/offset query values.
//
// Behavior:
//   - Empty limit → DefaultLimit, empty offset → 0.
//   - Limit above MaxLimit is clamped.
//   - Non-numeric, zero or negative limit and negative offset are rejected.
func Parse(limit, offset string) (Page, error) {
	p := Page{Limit: DefaultLimit}

	if s := strings.TrimSpace(limit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return Page{}, fmt.Errorf("invalid limit %q", limit)
		}
		p.Limit = min(n, MaxLimit)
	}

	if s := strings.TrimSpace(offset); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("invalid offset %q", offset)
		}
		p.Offset = n
	}
	return p, nil
}
