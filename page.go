package ckorm

// Page is one page of a Paginate call: the page rows plus the COUNT(*) total
type Page[T any] struct {
	PageNumber int   `json:"pageNumber"` // 1-based
	PageSize   int   `json:"pageSize"`
	TotalPage  int   `json:"totalPage"`
	TotalRow   int64 `json:"totalRow"`
	List       []T   `json:"list"`
}

// NewPage builds a Page and derives TotalPage from totalRow
func NewPage[T any](list []T, pageNumber, pageSize int, totalRow int64) *Page[T] {
	p := &Page[T]{PageNumber: pageNumber, PageSize: pageSize, TotalRow: totalRow, List: list}
	if pageSize > 0 {
		p.TotalPage = int((totalRow + int64(pageSize) - 1) / int64(pageSize))
	}
	return p
}

// normalizePage 修正非法的页码和每页大小，返回 (页码, 每页大小, offset)
func normalizePage(pageNumber, pageSize int) (int, int, int) {
	pageNumber = max(pageNumber, DefaultPage)
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	// LIMIT o,n 一次最多取 MaxPageSize 行
	pageSize = min(pageSize, MaxPageSize)
	return pageNumber, pageSize, (pageNumber - 1) * pageSize
}

// Offset is the row offset the page starts at
func (p *Page[T]) Offset() int {
	return (max(p.PageNumber, 1) - 1) * p.PageSize
}

func (p *Page[T]) IsFirstPage() bool {
	return p.PageNumber <= 1
}

func (p *Page[T]) IsLastPage() bool {
	return p.PageNumber >= p.TotalPage
}

// ToJson returns the page as JSON
func (p *Page[T]) ToJson() string {
	return ToJson(p)
}
