// Package overflow fits an ordered list of items into a size-constrained
// container by hiding items from the end, and reports how many were hidden
// so the caller can render a "+N" indicator.
package overflow

import "sync"

// Size is the visible area of the container, in whatever unit the layout
// uses (pixels for HTML, lines for the terminal).
type Size struct {
	Width  int
	Height int
}

// Layout reports the extent the given items occupy when rendered in order.
type Layout[T any] interface {
	Extent(items []T) int
}

// StackLayout stacks items vertically with a fixed gap between them.
type StackLayout[T any] struct {
	ItemExtent func(T) int
	Gap        int
}

func (s StackLayout[T]) Extent(items []T) int {
	total := 0
	for i, it := range items {
		if i > 0 {
			total += s.Gap
		}
		total += s.ItemExtent(it)
	}
	return total
}

// Fixed is a StackLayout where every item has the same extent.
func Fixed[T any](extent, gap int) StackLayout[T] {
	return StackLayout[T]{
		ItemExtent: func(T) int { return extent },
		Gap:        gap,
	}
}

// Measure returns how many of n trailing items to hide. fits reports
// whether the first visible items fit the container. Items are hidden one
// at a time from the end, re-checking after each, until the rest fit or
// nothing is left. With n == 0 fits is never called.
func Measure(n int, fits func(visible int) bool) int {
	hidden := 0
	for hidden < n && !fits(n-hidden) {
		hidden++
	}
	return hidden
}

// Rendered is the output of List.Render.
type Rendered struct {
	Items []string
	// Overflow is the rendered indicator, empty when nothing is hidden.
	Overflow string
	Hidden   int
}

// List keeps items, the container size and the resulting hidden count in
// sync. It re-measures on SetItems and on Resize. Until the first Resize
// the container size is unknown and every item is shown.
type List[T any] struct {
	mu     sync.Mutex
	items  []T
	layout Layout[T]
	size   Size
	sized  bool
	hidden int
	gen    uint64

	renderItem     func(T) string
	renderOverflow func(int) string
	onChange       func(hidden int)
}

// New builds a list. renderOverflow receives the hidden count.
func New[T any](layout Layout[T], renderItem func(T) string, renderOverflow func(int) string) *List[T] {
	return &List[T]{
		layout:         layout,
		renderItem:     renderItem,
		renderOverflow: renderOverflow,
	}
}

// OnChange registers a callback fired whenever the hidden count changes.
func (l *List[T]) OnChange(fn func(hidden int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// SetItems replaces the collection and re-measures.
func (l *List[T]) SetItems(items []T) int {
	l.mu.Lock()
	l.items = append([]T(nil), items...)
	return l.remeasureAndUnlock()
}

// Resize is the container-size-changed notification.
func (l *List[T]) Resize(size Size) int {
	l.mu.Lock()
	l.size = size
	l.sized = true
	return l.remeasureAndUnlock()
}

// Hidden is the current overflow count.
func (l *List[T]) Hidden() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hidden
}

// Visible returns the items that are not hidden.
func (l *List[T]) Visible() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items[:len(l.items)-l.hidden]...)
}

// Render runs the render callbacks over the visible items.
func (l *List[T]) Render() Rendered {
	l.mu.Lock()
	defer l.mu.Unlock()

	visible := l.items[:len(l.items)-l.hidden]
	out := Rendered{Items: make([]string, 0, len(visible)), Hidden: l.hidden}
	for _, it := range visible {
		out.Items = append(out.Items, l.renderItem(it))
	}
	if l.hidden > 0 && l.renderOverflow != nil {
		out.Overflow = l.renderOverflow(l.hidden)
	}
	return out
}

// remeasureAndUnlock must be called with l.mu held. The callback runs after
// the lock is released and only if no newer measurement happened meanwhile.
func (l *List[T]) remeasureAndUnlock() int {
	prev := l.hidden
	l.hidden = l.measureLocked()
	l.gen++
	gen, hidden, fn := l.gen, l.hidden, l.onChange
	l.mu.Unlock()

	if fn != nil && hidden != prev {
		l.mu.Lock()
		current := l.gen == gen
		l.mu.Unlock()
		if current {
			fn(hidden)
		}
	}
	return hidden
}

func (l *List[T]) measureLocked() int {
	if !l.sized || len(l.items) == 0 {
		return 0
	}
	limit := l.size.Height
	return Measure(len(l.items), func(visible int) bool {
		return l.layout.Extent(l.items[:visible]) <= limit
	})
}
