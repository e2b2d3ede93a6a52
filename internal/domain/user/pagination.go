package user

// Pagination describes one page of the roster listing.
type Pagination struct {
	Total      int64 // Total number of stored users
	Page       int64 // Current page number (1-based)
	Limit      int64 // Page size
	TotalPages int64 // Number of pages for the given limit
}

// NewPagination builds a Pagination and derives the page count.
func NewPagination(total, page, limit int64) *Pagination {
	var totalPages int64
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return &Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// Offset returns the number of rows to skip for page and limit.
func Offset(page, limit int64) int64 {
	if page <= 1 || limit <= 0 {
		return 0
	}
	return (page - 1) * limit
}
