package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"libdesk/internal/domain"
	"libdesk/internal/listing"
	"libdesk/internal/repos"
)

const BookPageSize = 10

// Book search fields offered by the table.
var BookFields = []string{"name", "author", "category", "code", "publisher"}

// Book sort keys offered by the table.
var BookSorts = []string{"name-asc", "name-desc", "year-asc", "year-desc"}

type BookQuery struct {
	Field string
	Term  string
	Sort  string
	Page  int
}

type BookService struct {
	Books *repos.BookRepo
}

func NewBookService(books *repos.BookRepo) *BookService {
	return &BookService{Books: books}
}

func bookFields(field string) func(domain.Book) []string {
	switch field {
	case "author":
		return func(b domain.Book) []string { return b.Authors }
	case "category":
		return func(b domain.Book) []string {
			var out []string
			for _, c := range b.Categories {
				out = append(out, c.Name)
				out = append(out, c.SubCategories...)
			}
			return out
		}
	case "code":
		return func(b domain.Book) []string { return []string{b.Code} }
	case "publisher":
		return func(b domain.Book) []string { return []string{b.Publisher} }
	default:
		return func(b domain.Book) []string { return []string{b.Title} }
	}
}

func bookOrder(key string) listing.Compare[domain.Book] {
	title := func(b domain.Book) string { return b.Title }
	year := func(b domain.Book) int { return b.PublicationYear }
	switch key {
	case "name-asc":
		return listing.ByText(title, false)
	case "name-desc":
		return listing.ByText(title, true)
	case "year-asc":
		return listing.ByInt(year, false)
	case "year-desc":
		return listing.ByInt(year, true)
	}
	return nil
}

// List fetches the whole catalog and applies search, sort and paging.
func (s *BookService) List(ctx context.Context, q BookQuery) (listing.Page[domain.Book], error) {
	all, err := s.Books.All(ctx)
	if err != nil {
		return listing.Paginate[domain.Book](nil, 1, BookPageSize), err
	}
	rows := listing.Filter(all, q.Term, bookFields(q.Field))
	rows = listing.Sort(rows, bookOrder(q.Sort))
	return listing.Paginate(rows, q.Page, BookPageSize), nil
}

// Get finds a book by id or code in the full catalog.
func (s *BookService) Get(ctx context.Context, id string) (domain.Book, error) {
	all, err := s.Books.All(ctx)
	if err != nil {
		return domain.Book{}, err
	}
	for _, b := range all {
		if b.ID == id || b.Code == id {
			return b, nil
		}
	}
	return domain.Book{}, fmt.Errorf("book %q: %w", id, ErrBookNotFound)
}

func (s *BookService) Create(ctx context.Context, b domain.Book) (domain.Book, error) {
	b.Code = ""
	b.Available = b.Quantity > 0
	return s.Books.Create(ctx, b)
}

// Update sends the fields of next that differ from cur. Availability
// follows the quantity. No change means no call.
func (s *BookService) Update(ctx context.Context, cur, next domain.Book) (domain.Book, error) {
	patch := BookPatch(cur, next)
	if len(patch) == 0 {
		return cur, nil
	}
	return s.Books.Update(ctx, cur.Key(), patch)
}

// BookPatch lists the changed fields under their wire names.
func BookPatch(cur, next domain.Book) map[string]any {
	patch := map[string]any{}
	if next.Title != cur.Title {
		patch["title"] = next.Title
	}
	if next.Description != cur.Description {
		patch["description"] = next.Description
	}
	if !slices.Equal(next.Authors, cur.Authors) {
		patch["author"] = next.Authors
	}
	if next.PublicationYear != cur.PublicationYear {
		patch["publicationYear"] = next.PublicationYear
	}
	if next.Quantity != cur.Quantity {
		patch["quantity"] = next.Quantity
	}
	if avail := next.Quantity > 0; avail != cur.Available {
		patch["availability"] = avail
	}
	if next.Image != cur.Image {
		patch["img"] = next.Image
	}
	if next.Publisher != cur.Publisher {
		patch["nxb"] = next.Publisher
	}
	cm, cs := cur.MainCategory()
	nm, ns := next.MainCategory()
	if nm != cm || ns != cs {
		patch["bigCategory"] = next.Categories
	}
	return patch
}

func (s *BookService) Delete(ctx context.Context, id string) error {
	return s.Books.Delete(ctx, id)
}

// Suggest returns up to limit titles matching q for the autocomplete panel.
func (s *BookService) Suggest(ctx context.Context, q string, limit int) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []string{}, nil
	}
	books, err := s.Books.Search(ctx, q, "title")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, min(len(books), limit))
	seen := map[string]bool{}
	for _, b := range books {
		if len(out) == limit {
			break
		}
		if !seen[b.Title] {
			seen[b.Title] = true
			out = append(out, b.Title)
		}
	}
	return out, nil
}
