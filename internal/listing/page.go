package listing

// Page is one slice of a filtered collection.
type Page[T any] struct {
	Items  []T
	Number int // 1-based, 0 when the collection is empty
	Size   int
	Total  int
	Pages  int
}

// PageCount is ceil(total/size).
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate slices items into the requested page. The page number is clamped
// to [1, PageCount]; a non-positive size means everything on one page.
func Paginate[T any](items []T, page, size int) Page[T] {
	total := len(items)
	if size <= 0 {
		size = total
	}
	pages := PageCount(total, size)
	if pages == 0 {
		return Page[T]{Items: []T{}, Size: size}
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)
	return Page[T]{Items: items[start:end], Number: page, Size: size, Total: total, Pages: pages}
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.Pages }
func (p Page[T]) Prev() int     { return p.Number - 1 }
func (p Page[T]) Next() int     { return p.Number + 1 }

// Links lists the page numbers to render: always the first and last page,
// the neighbours of the current page, and 0 where a gap is elided.
func (p Page[T]) Links() []int {
	if p.Pages == 0 {
		return nil
	}
	links := []int{1}
	if p.Number > 3 {
		links = append(links, 0)
	}
	for i := max(2, p.Number-1); i <= min(p.Pages-1, p.Number+1); i++ {
		links = append(links, i)
	}
	if p.Number < p.Pages-2 {
		links = append(links, 0)
	}
	if p.Pages > 1 {
		links = append(links, p.Pages)
	}
	return links
}
