// Package paginate provides the cursor state machine used to browse lists
// one page at a time, and an interactive View that adds idle expiry and
// navigation controls on top of it.
package paginate

// DefaultPageSize is the page size used when none is given.
const DefaultPageSize = 5

// Pager tracks a cursor over an immutable slice. Navigation clamps at the
// edges and never fails.
type Pager[T any] struct {
	items  []T
	size   int
	cursor int
}

// New returns a Pager over items starting at the first page. A size below 1
// falls back to DefaultPageSize. The slice is copied.
func New[T any](items []T, size int) *Pager[T] {
	if size < 1 {
		size = DefaultPageSize
	}
	cp := make([]T, len(items))
	copy(cp, items)
	return &Pager[T]{items: cp, size: size}
}

// PageCount returns ceil(N/size), and 1 for an empty slice.
func (p *Pager[T]) PageCount() int {
	if len(p.items) == 0 {
		return 1
	}
	return (len(p.items) + p.size - 1) / p.size
}

// Cursor returns the zero-based current page.
func (p *Pager[T]) Cursor() int { return p.cursor }

// Len returns the number of items.
func (p *Pager[T]) Len() int { return len(p.items) }

// Previous moves one page back, staying put on the first page.
func (p *Pager[T]) Previous() {
	if p.cursor > 0 {
		p.cursor--
	}
}

// Next moves one page forward, staying put on the last page.
func (p *Pager[T]) Next() {
	if p.cursor < p.PageCount()-1 {
		p.cursor++
	}
}

// Current returns the items of the current page.
func (p *Pager[T]) Current() []T {
	start := p.cursor * p.size
	end := min(start+p.size, len(p.items))
	if start >= end {
		return []T{}
	}
	return p.items[start:end:end]
}

// CanPrevious reports whether Previous would move the cursor.
func (p *Pager[T]) CanPrevious() bool { return p.cursor > 0 }

// CanNext reports whether Next would move the cursor.
func (p *Pager[T]) CanNext() bool { return p.cursor < p.PageCount()-1 }
