package kernel

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

type PaginationOptions struct {
	Page     int `json:"page" query:"page"`
	PageSize int `json:"page_size" query:"page_size"`
}

// Normalize clamps the options to usable values
func (p PaginationOptions) Normalize() PaginationOptions {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset of the page
func (p PaginationOptions) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

type Page struct {
	Number int `json:"number"`
	Size   int `json:"size"`
	Total  int `json:"total"`
	Pages  int `json:"pages"`
}

type Paginated[T any] struct {
	Items []T  `json:"items"`
	Page  Page `json:"page"`
	Empty bool `json:"empty"`
}

// HasNext reports whether another page follows
func (p *Paginated[T]) HasNext() bool {
	return p.Page.Number < p.Page.Pages
}

// NewPaginated builds a page envelope from a total row count
func NewPaginated[T any](items []T, opts PaginationOptions, total int) *Paginated[T] {
	n := opts.Normalize()
	return &Paginated[T]{
		Items: items,
		Page: Page{
			Number: n.Page,
			Size:   n.PageSize,
			Total:  total,
			Pages:  (total + n.PageSize - 1) / n.PageSize,
		},
		Empty: len(items) == 0,
	}
}
