package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"libdesk/internal/domain"
	"libdesk/internal/repos"
)

type CategoryService struct {
	Cats *repos.CategoryRepo
}

func NewCategoryService(cats *repos.CategoryRepo) *CategoryService {
	return &CategoryService{Cats: cats}
}

// Load fetches the main categories, then the subcategories of each one in
// turn. A failed subcategory lookup leaves that main category empty; the
// failures are joined into the returned error next to the partial tree.
func (s *CategoryService) Load(ctx context.Context) ([]domain.Category, error) {
	mains, err := s.Cats.Mains(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(mains))
	var errs []error
	for _, m := range mains {
		subs, err := s.Cats.Subs(ctx, m)
		if err != nil {
			errs = append(errs, fmt.Errorf("subcategories of %q: %w", m, err))
			subs = nil
		}
		out = append(out, domain.Category{Name: m, SubCategories: subs})
	}
	return out, errors.Join(errs...)
}

// InferMain names the main category owning sub when exactly one does.
func InferMain(cats []domain.Category, sub string) (string, error) {
	var owner string
	n := 0
	for _, c := range cats {
		for _, s := range c.SubCategories {
			if s == sub {
				owner = c.Name
				n++
				break
			}
		}
	}
	if n != 1 {
		return "", fmt.Errorf("%q has %d owners: %w", sub, n, ErrCategoryNotFound)
	}
	return owner, nil
}

// Rows flattens the tree: each main category followed by its subcategories.
func Rows(cats []domain.Category) []domain.CategoryRow {
	var rows []domain.CategoryRow
	for _, c := range cats {
		rows = append(rows, domain.CategoryRow{Name: c.Name})
		for _, s := range c.SubCategories {
			rows = append(rows, domain.CategoryRow{Name: s, Parent: c.Name, IsSub: true})
		}
	}
	return rows
}

func (s *CategoryService) Rename(ctx context.Context, oldName, newName string) error {
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return ErrCategoryNotFound
	}
	if oldName == newName {
		return nil
	}
	return s.Cats.Rename(ctx, oldName, newName)
}
