// Package catalog paginates filtered catalog listings.
//
// Paging never fails: unparseable or out-of-range page numbers degrade to
// page 1 or to an empty window.
package catalog

import (
	"strconv"
	"strings"
)

// PageSize is the number of articles shown per catalog page.
const PageSize = 12

// Window describes one page of a result set of TotalItems entries.
// The articles on the page are the half-open range [Start, End).
type Window struct {
	Page       int
	PageSize   int
	TotalItems int
	PageCount  int
	Start      int
	End        int
	HasPrev    bool
	HasNext    bool
}

// Len returns the number of entries on the page.
func (w Window) Len() int {
	return w.End - w.Start
}

// Empty reports whether the page holds no entries.
func (w Window) Empty() bool {
	return w.Len() == 0
}

// Offset is the store offset of the first entry.
func (w Window) Offset() int {
	return w.Start
}

// Limit is the number of entries to fetch from the store.
func (w Window) Limit() int {
	return w.Len()
}

// ParsePage parses a requested page number. Anything that is not an integer
// yields 1, and integers below 1 are clamped to 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return ClampPage(page)
}

// ClampPage clamps page to at least 1.
func ClampPage(page int) int {
	return max(page, 1)
}

// PageCount returns the number of pages needed for totalItems. An empty
// result still has one (empty) page.
func PageCount(totalItems, pageSize int) int {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	if totalItems <= 0 {
		return 1
	}
	return (totalItems-1)/pageSize + 1
}

// Paginate computes the window for page over totalItems entries.
// A page past the end yields an empty window rather than an error.
func Paginate(totalItems, page, pageSize int) Window {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	totalItems = max(totalItems, 0)
	page = ClampPage(page)
	pageCount := PageCount(totalItems, pageSize)

	// Guard against overflow for absurd page numbers.
	start := totalItems
	if page-1 <= totalItems/pageSize {
		start = min((page-1)*pageSize, totalItems)
	}
	end := totalItems
	if page <= totalItems/pageSize {
		end = page * pageSize
	}
	if start > end {
		start = end
	}

	return Window{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		PageCount:  pageCount,
		Start:      start,
		End:        end,
		HasPrev:    page > 1,
		HasNext:    page < pageCount,
	}
}

// NeighborWindow returns up to count consecutive page numbers to show around
// page in a pager. The first and the last page are rendered separately, so
// the numbers lie in [2, pageCount). The run starts one page before the
// current page and shifts down when it would cross the last page.
func NeighborWindow(totalItems, page, count, pageSize int) []int {
	pageCount := PageCount(totalItems, pageSize)
	if count <= 0 || pageCount <= 2 {
		return []int{}
	}
	page = ClampPage(page)

	low := max(2, page-1)
	if low > pageCount {
		low = pageCount
	}
	high := pageCount
	if count < pageCount-low {
		high = low + count
	}
	if high-low < count {
		low = max(2, high-count)
	}

	numbers := make([]int, 0, high-low)
	for n := low; n < high; n++ {
		numbers = append(numbers, n)
	}
	return numbers
}
