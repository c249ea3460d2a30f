package repos

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type CategoryRepo struct{ api *Client }

func NewCategoryRepo(api *Client) *CategoryRepo { return &CategoryRepo{api: api} }

func (r *CategoryRepo) Mains(ctx context.Context) ([]string, error) {
	var out []string
	err := r.api.get(ctx, "/books/categories", nil, &out)
	return out, err
}

func (r *CategoryRepo) Subs(ctx context.Context, main string) ([]string, error) {
	var out []string
	err := r.api.get(ctx, "/books/categories/"+CategorySlug(main), nil, &out)
	return out, err
}

type renameRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

func (r *CategoryRepo) Rename(ctx context.Context, oldName, newName string) error {
	return r.api.send(ctx, "PUT", "/books/categories/update", renameRequest{OldName: oldName, NewName: newName}, nil)
}

var reSpaces = regexp.MustCompile(`\s+`)

// CategorySlug is the path form of a category name:
// "Truyện Tranh/Manga" becomes "truyen-tranh-manga".
func CategorySlug(name string) string {
	s := strings.ToLower(name)
	s = reSpaces.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, "/", "-")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	return strings.ReplaceAll(s, "đ", "d")
}
