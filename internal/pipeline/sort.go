package pipeline

import (
	"slices"
	"strings"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"golang.org/x/text/cases"
)

// SortOrder selects the direction of the name ordering.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder accepts the short and long spellings; anything else sorts ascending.
func ParseSortOrder(rawInput string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case "desc", "descending":
		return SortDescending
	default:
		return SortAscending
	}
}

// Toggle returns the opposite direction.
func (o SortOrder) Toggle() SortOrder {
	if o == SortDescending {
		return SortAscending
	}
	return SortDescending
}

type sortKey struct {
	key    string
	record users.User
}

// Sort orders records by case-folded name. Ties keep their input order in both directions.
func Sort(records []users.User, order SortOrder) []users.User {
	folder := cases.Fold()
	keyed := make([]sortKey, len(records))
	for index, record := range records {
		keyed[index] = sortKey{key: folder.String(record.Name), record: record}
	}

	descending := order == SortDescending
	slices.SortStableFunc(keyed, func(left, right sortKey) int {
		comparison := strings.Compare(left.key, right.key)
		if descending {
			return -comparison
		}
		return comparison
	})

	sorted := make([]users.User, len(keyed))
	for index, entry := range keyed {
		sorted[index] = entry.record
	}
	return sorted
}
