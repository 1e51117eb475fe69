package pipeline

import "github.com/MarcoPoloResearchLab/roster/internal/users"

// Derive runs Filter, Sort and Paginate over records using state.
func Derive(records []users.User, state State) Page {
	filtered := Filter(records, state.Query)
	sorted := Sort(filtered, state.SortOrder)
	return Paginate(sorted, state.PageSize, state.PageIndex)
}
