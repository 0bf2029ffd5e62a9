package pagination

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	svcErr "github.com/oggyb/matcha/internal/errors"
)

// DefaultLimit and MaxLimit bound every paginated listing.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor is the opaque pagination state we encode/decode.
// ID + CreatedUnix (in millis) establish a stable keyset position for
// listings ordered by (created_at DESC, id DESC).
type Cursor struct {
	ID          uint64 `json:"id"`
	CreatedUnix int64  `json:"created_unix,omitempty"`
}

// IsZero reports whether c points at the first page.
func (c Cursor) IsZero() bool { return c.ID == 0 && c.CreatedUnix == 0 }

// Time returns the cursor timestamp.
func (c Cursor) Time() time.Time { return time.UnixMilli(c.CreatedUnix).UTC() }

// At builds the cursor of the given row.
func At(id uint64, created time.Time) Cursor {
	return Cursor{ID: id, CreatedUnix: created.UnixMilli()}
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token: %w", svcErr.ErrInvalidArgument)
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token: %w", svcErr.ErrInvalidArgument)
	}
	return c, nil
}

// ClampLimit applies DefaultLimit to non-positive values and caps at MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Page trims a limit+1 result set to limit rows and returns the next token
// when more rows exist. key extracts the keyset position of a row.
func Page[T any](rows []T, limit int, key func(T) Cursor) ([]T, *string) {
	if len(rows) <= limit {
		return rows, nil
	}
	token, err := Encode(key(rows[limit-1]))
	if err != nil {
		return rows[:limit], nil
	}
	return rows[:limit], &token
}
