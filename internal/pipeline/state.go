package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DefaultPageSize is the page size a fresh State starts with.
const DefaultPageSize = 5

// ErrInvalidPageSize indicates a page size outside AllowedPageSizes.
var ErrInvalidPageSize = errors.New("pipeline: invalid page size")

var allowedPageSizes = []int{5, 10, 20, 50}

// AllowedPageSizes lists the page sizes a State accepts.
func AllowedPageSizes() []int {
	return slices.Clone(allowedPageSizes)
}

// IsAllowedPageSize reports whether size can be selected.
func IsAllowedPageSize(size int) bool {
	return slices.Contains(allowedPageSizes, size)
}

// State is the view configuration applied to a snapshot. The zero value is not
// usable; start from NewState.
type State struct {
	Query     string
	SortOrder SortOrder
	PageSize  int
	PageIndex int
}

// NewState returns the defaults: no query, ascending, first page of five.
func NewState() State {
	return State{
		SortOrder: SortAscending,
		PageSize:  DefaultPageSize,
		PageIndex: 1,
	}
}

// SetQuery replaces the filter text and returns to the first page.
func (s *State) SetQuery(query string) {
	s.Query = query
	s.PageIndex = 1
}

// SetSortOrder changes the direction; the page index is re-clamped on the next derive.
func (s *State) SetSortOrder(order SortOrder) {
	s.SortOrder = order
}

// ToggleSort flips the direction.
func (s *State) ToggleSort() {
	s.SortOrder = s.SortOrder.Toggle()
}

// SetPageSize switches to another allowed size and always returns to the first page.
func (s *State) SetPageSize(size int) error {
	if !IsAllowedPageSize(size) {
		return fmt.Errorf("%w: %d (allowed %s)", ErrInvalidPageSize, size, formatSizes(allowedPageSizes))
	}
	s.PageSize = size
	s.PageIndex = 1
	return nil
}

// Next advances one page unless already on the last page of totalItems.
func (s *State) Next(totalItems int) {
	s.Clamp(totalItems)
	if s.PageIndex < TotalPages(totalItems, s.PageSize) {
		s.PageIndex++
	}
}

// Prev goes back one page unless already on the first page of totalItems.
func (s *State) Prev(totalItems int) {
	s.Clamp(totalItems)
	if s.PageIndex > 1 {
		s.PageIndex--
	}
}

// Clamp keeps PageIndex inside the pages spanned by totalItems.
func (s *State) Clamp(totalItems int) {
	s.PageIndex = ClampPageIndex(s.PageIndex, totalItems, s.PageSize)
}

func formatSizes(sizes []int) string {
	parts := make([]string, len(sizes))
	for index, size := range sizes {
		parts[index] = fmt.Sprint(size)
	}
	return strings.Join(parts, "/")
}
