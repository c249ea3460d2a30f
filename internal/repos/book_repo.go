package repos

import (
	"context"
	"net/url"
	"strconv"

	"libdesk/internal/domain"
)

// The backend refuses page indexes past this.
const maxBookPages = 200

type BookRepo struct{ api *Client }

func NewBookRepo(api *Client) *BookRepo { return &BookRepo{api: api} }

// Page fetches one backend page. page is 1-based here and 0-based on the wire.
func (r *BookRepo) Page(ctx context.Context, page, size int) (domain.Page[domain.Book], error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(min(page-1, maxBookPages-1)))
	q.Set("size", strconv.Itoa(size))
	var out domain.Page[domain.Book]
	if err := r.api.get(ctx, "/books", q, &out); err != nil {
		return domain.Page[domain.Book]{}, err
	}
	out.CurrentPage++
	out.TotalPages = min(out.TotalPages, maxBookPages)
	return out, nil
}

// All walks every backend page and returns the whole catalog.
func (r *BookRepo) All(ctx context.Context) ([]domain.Book, error) {
	const size = 100
	var books []domain.Book
	for page := 1; page <= maxBookPages; page++ {
		p, err := r.Page(ctx, page, size)
		if err != nil {
			return nil, err
		}
		books = append(books, p.Data...)
		if !p.HasNext || len(p.Data) == 0 {
			break
		}
	}
	return books, nil
}

// Search asks the backend for books by "title" or "author".
func (r *BookRepo) Search(ctx context.Context, term, by string) ([]domain.Book, error) {
	if by != "author" {
		by = "title"
	}
	q := url.Values{}
	q.Set(by, term)
	var out []domain.Book
	err := r.api.get(ctx, "/books/search", q, &out)
	return out, err
}

func (r *BookRepo) Create(ctx context.Context, b domain.Book) (domain.Book, error) {
	var out domain.Book
	err := r.api.send(ctx, "POST", "/books", b, &out)
	return out, err
}

// Update sends only the changed fields.
func (r *BookRepo) Update(ctx context.Context, id string, patch map[string]any) (domain.Book, error) {
	var out domain.Book
	err := r.api.send(ctx, "PUT", "/books/update/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (r *BookRepo) Delete(ctx context.Context, id string) error {
	return r.api.send(ctx, "DELETE", "/books/delete/"+url.PathEscape(id), nil, nil)
}

func (r *BookRepo) Total(ctx context.Context) (int, error) {
	var n int
	err := r.api.get(ctx, "/books/total", nil, &n)
	return n, err
}

func (r *BookRepo) CategoryDistribution(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	err := r.api.get(ctx, "/books/category-distribution", nil, &out)
	return out, err
}
