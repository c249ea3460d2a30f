// Package listing holds the table mechanics shared by every admin list:
// case-insensitive substring search, stable sorting and page slicing over a
// collection that was fetched in full from the backend.
package listing

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Fold normalises s for case-insensitive comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Contains reports whether any field contains q, ignoring case.
// An empty q matches everything.
func Contains(fields []string, q string) bool {
	if q == "" {
		return true
	}
	fq := Fold(q)
	for _, f := range fields {
		if strings.Contains(Fold(f), fq) {
			return true
		}
	}
	return false
}

// Filter keeps the items whose fields contain q. The input order is kept and
// an empty query returns items as-is.
func Filter[T any](items []T, q string, fields func(T) []string) []T {
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if Contains(fields(it), q) {
			out = append(out, it)
		}
	}
	return out
}

// Compare orders two items; negative means a sorts before b.
type Compare[T any] func(a, b T) int

// Sort returns a stably sorted copy of items. Ties keep their input order.
func Sort[T any](items []T, cmp Compare[T]) []T {
	out := slices.Clone(items)
	if cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

// ByText compares a string key with Vietnamese collation. The returned
// Compare owns a collator and must not be shared between goroutines.
func ByText[T any](key func(T) string, desc bool) Compare[T] {
	col := collate.New(language.Vietnamese)
	return func(a, b T) int {
		c := col.CompareString(key(a), key(b))
		if desc {
			return -c
		}
		return c
	}
}

// ByInt compares a numeric key.
func ByInt[T any](key func(T) int, desc bool) Compare[T] {
	return func(a, b T) int {
		x, y := key(a), key(b)
		c := 0
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
		if desc {
			return -c
		}
		return c
	}
}
