package core

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jmylchreest/padui/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByPosition SortField = "position"
	SortByName     SortField = "name"
	SortByDuration SortField = "duration"
	SortBySize     SortField = "size"
	SortByAdded    SortField = "added"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField // Field to sort by
	Order SortOrder // Sort order (asc/desc)
}

// DefaultSortOptions returns default sort options (catalog order).
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByPosition,
		Order: SortAsc,
	}
}

// Sort sorts rows in place. Rows that compare equal keep catalog order.
// Unknown durations sort after known ones regardless of order.
func Sort(rows []model.Row, opts SortOptions) {
	if len(rows) == 0 {
		return
	}

	slices.SortStableFunc(rows, func(a, b model.Row) int {
		var c int

		switch opts.Field {
		case SortByName:
			c = cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByDuration:
			if a.HasDuration != b.HasDuration {
				if a.HasDuration {
					return -1
				}
				return 1
			}
			c = cmp.Compare(a.Duration, b.Duration)
		case SortBySize:
			c = cmp.Compare(a.Size, b.Size)
		case SortByAdded:
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = cmp.Compare(a.Index, b.Index)
		}

		if opts.Order == SortDesc {
			return -c
		}
		return c
	})
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "position", "index", "p":
		return SortByPosition, nil
	case "name", "n":
		return SortByName, nil
	case "duration", "length", "d":
		return SortByDuration, nil
	case "size", "s":
		return SortBySize, nil
	case "added", "created", "a":
		return SortByAdded, nil
	default:
		return SortByPosition, nil
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d":
		return SortDesc, nil
	default:
		return SortAsc, nil
	}
}
