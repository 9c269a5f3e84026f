// Package pagination implements keyset paging over (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultLimit = 10
	MaxLimit     = 250
)

type Pagination struct {
	Cursor string
	Limit  int
}

// Size is Limit clamped to [1, MaxLimit], or DefaultLimit when unset.
func (p Pagination) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Cursor identifies the last row of a page.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        int64     `json:"id"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(s string) (Cursor, error) {
	var c Cursor
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("decode cursor: %w", err)
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("decode cursor: %w", err)
	}
	if c.CreatedAt.IsZero() {
		return c, fmt.Errorf("decode cursor: missing timestamp")
	}
	return c, nil
}

// Page trims rows fetched with one extra element down to size and returns
// the page info. NextCursor is set only when another page exists.
func Page[T any](rows []*T, size int, cursorOf func(*T) Cursor) ([]*T, *PageInfo, error) {
	if len(rows) <= size {
		return rows, &PageInfo{}, nil
	}
	rows = rows[:size]
	next, err := EncodeCursor(cursorOf(rows[size-1]))
	if err != nil {
		return nil, nil, err
	}
	return rows, &PageInfo{NextCursor: next, HasMore: true}, nil
}
