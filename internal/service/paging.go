package service

import "math"

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps (page-1)*size within int32 for any allowed size
	maxPage = math.MaxInt32 / maxPageSize
)

// normalizePage page defaults to 1 and is capped at maxPage, size defaults
// to 20 and is capped at 100.
func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func totalPages(total, size int) int {
	if total == 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
