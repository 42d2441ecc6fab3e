package services

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// normalizePage clamps the page to >= 1 and the limit to (0, MaxPageSize].
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
