package repository

import (
	"time"

	"github.com/oggyb/matcha/internal/utils/pagination"
)

// UserEdgeRow is one entry of a "who did X to me" listing (likers, visitors).
type UserEdgeRow struct {
	UserID     uint64
	Username   string
	Popularity float64
	PhotoURL   *string
	CreatedAt  time.Time
	CursorID   uint64
}

func (r UserEdgeRow) cursor() pagination.Cursor {
	return pagination.At(r.CursorID, r.CreatedAt)
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
