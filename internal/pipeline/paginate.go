package pipeline

import "github.com/MarcoPoloResearchLab/roster/internal/users"

// Page is a single window over an ordered list.
type Page struct {
	Items       []users.User `json:"items"`
	PageIndex   int          `json:"page_index"`
	PageSize    int          `json:"page_size"`
	TotalPages  int          `json:"total_pages"`
	TotalItems  int          `json:"total_items"`
	IsFirstPage bool         `json:"is_first_page"`
	IsLastPage  bool         `json:"is_last_page"`
}

// TotalPages reports how many pages totalItems spans. An empty list still has one page.
func TotalPages(totalItems, pageSize int) int {
	pageSize = normalizePageSize(pageSize)
	if totalItems <= 0 {
		return 1
	}
	totalPages := totalItems / pageSize
	if totalItems%pageSize != 0 {
		totalPages++
	}
	return totalPages
}

// ClampPageIndex moves pageIndex into [1, totalPages].
func ClampPageIndex(pageIndex, totalItems, pageSize int) int {
	totalPages := TotalPages(totalItems, pageSize)
	if pageIndex < 1 {
		return 1
	}
	if pageIndex > totalPages {
		return totalPages
	}
	return pageIndex
}

// Paginate returns the requested page. Out-of-range indexes are clamped, never rejected.
func Paginate(records []users.User, pageSize, pageIndex int) Page {
	pageSize = normalizePageSize(pageSize)
	totalItems := len(records)
	totalPages := TotalPages(totalItems, pageSize)
	pageIndex = ClampPageIndex(pageIndex, totalItems, pageSize)

	start := (pageIndex - 1) * pageSize
	end := start + min(pageSize, totalItems-start)
	items := make([]users.User, end-start)
	copy(items, records[start:end])

	return Page{
		Items:       items,
		PageIndex:   pageIndex,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		IsFirstPage: pageIndex == 1,
		IsLastPage:  pageIndex == totalPages,
	}
}

func normalizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return DefaultPageSize
	}
	return pageSize
}
