package pipeline

import (
	"strings"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"golang.org/x/text/cases"
)

// Filter keeps the records whose name or email contains query, ignoring case.
// A blank query returns the records unchanged.
func Filter(records []users.User, query string) []users.User {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return append([]users.User(nil), records...)
	}

	folder := cases.Fold()
	needle := folder.String(trimmed)
	matched := make([]users.User, 0, len(records))
	for _, record := range records {
		if strings.Contains(folder.String(record.Name), needle) || strings.Contains(folder.String(record.Email), needle) {
			matched = append(matched, record)
		}
	}
	return matched
}
