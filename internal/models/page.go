package models

// Page is one page of a listing plus the numbers needed to render a pager.
type Page[T any] struct {
	Items      []T
	Total      int64
	Page       int
	TotalPages int
}

// TotalPages returns ceil(total/pageSize). pageSize must be positive.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

// Offset returns the row offset of page (1-based).
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}
