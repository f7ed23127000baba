// Package pagination implements the opaque page tokens behind order history
// listings. Pages walk (created_at, id) descending and the token names the
// first row of the next page, so orders finalized between requests can never
// shift or duplicate entries the client already saw.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPageSize applies when a listing request carries no limit.
	DefaultPageSize = 25
	// MaxPageSize is the ceiling on any single listing request.
	MaxPageSize = 100

	tokenSeparator = "@"
)

// Cursor pins a listing to a position in the order feed. CreatedAt carries
// the sort position; ID breaks ties between orders created in the same
// instant.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Encode renders the cursor as the opaque token handed to clients. The
// encoding is URL-safe so tokens survive query strings unescaped.
func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + tokenSeparator + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a client-supplied page token. An empty token means the first
// page and yields a nil cursor.
func Decode(token string) (*Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode page token: %w", err)
	}
	position, id, ok := strings.Cut(string(raw), tokenSeparator)
	if !ok {
		return nil, fmt.Errorf("malformed page token")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, position)
	if err != nil {
		return nil, fmt.Errorf("page token position: %w", err)
	}
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("page token id: %w", err)
	}
	return &Cursor{CreatedAt: createdAt, ID: orderID}, nil
}

// ClampPageSize applies the default and the ceiling to a requested size.
func ClampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// FetchSize is the row count to query for a page: one past the clamped size,
// so the repository can tell whether another page exists without a second
// round trip.
func FetchSize(n int) int {
	return ClampPageSize(n) + 1
}
