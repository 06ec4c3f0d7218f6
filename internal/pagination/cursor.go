// Package pagination implements keyset cursors over (created_at, id) ordered listings.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Cursor marks the last row of a page. The next page starts strictly after it
// in (created_at DESC, id DESC) order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// PageResult is the wire shape of a listing page.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	if c.ID == "" {
		return ""
	}
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Precedes reports whether a row keyed (createdAt, id) belongs on a page after c.
func (c Cursor) Precedes(createdAt time.Time, id string) bool {
	if createdAt.Equal(c.CreatedAt) {
		return id < c.ID
	}
	return createdAt.Before(c.CreatedAt)
}

// Decode parses a token produced by Encode. An empty token yields a nil cursor.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}

// Trim cuts a limit+1 fetch down to limit items and reports whether more remain.
// When more remain it also returns the cursor for the last kept item.
func Trim[T any](items []T, limit int, key func(T) Cursor) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	items = items[:limit]
	if limit == 0 {
		return items, "", true
	}
	return items, key(items[len(items)-1]).Encode(), true
}
