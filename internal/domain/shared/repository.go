package shared

// Filter holds list paging and ordering options. Storage adapters check
// OrderBy against their own whitelist.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultFilter returns the first page of twenty
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: 20}
}

// Offset returns the row offset of the page, normalizing bad input
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the page size, clamped to [1, 200]
func (f Filter) Limit() int {
	switch {
	case f.PageSize < 1:
		return 20
	case f.PageSize > 200:
		return 200
	}
	return f.PageSize
}

