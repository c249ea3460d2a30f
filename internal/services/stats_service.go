package services

import (
	"cmp"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"libdesk/internal/domain"
	"libdesk/internal/repos"
)

// Slice is one category of the distribution chart.
type Slice struct {
	Name  string
	Count int
}

type Overview struct {
	Counts       domain.Counts
	Borrowed     []domain.StatPoint
	Returned     []domain.StatPoint
	Distribution []Slice
}

type StatsService struct {
	Books   *repos.BookRepo
	Members *repos.MemberRepo
	Txs     *repos.TransactionRepo
}

func NewStatsService(books *repos.BookRepo, members *repos.MemberRepo, txs *repos.TransactionRepo) *StatsService {
	return &StatsService{Books: books, Members: members, Txs: txs}
}

// Counts fetches the four dashboard counters concurrently.
func (s *StatsService) Counts(ctx context.Context) (domain.Counts, error) {
	var c domain.Counts
	var g errgroup.Group
	g.Go(func() (err error) { c.Books, err = s.Books.Total(ctx); return })
	g.Go(func() (err error) { c.Members, err = s.Members.Count(ctx); return })
	g.Go(func() (err error) { c.Borrowed, err = s.Txs.Count(ctx, domain.StatusBorrowed); return })
	g.Go(func() (err error) { c.Returned, err = s.Txs.Count(ctx, domain.StatusReturned); return })
	return c, g.Wait()
}

// Overview gathers everything the dashboard shows. Parts that fail stay at
// their zero value; the first failure is returned for logging.
func (s *StatsService) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	var dist map[string]int
	var g errgroup.Group
	g.Go(func() (err error) { ov.Counts, err = s.Counts(ctx); return })
	g.Go(func() (err error) { ov.Borrowed, err = s.Txs.Weekly(ctx, domain.StatusBorrowed); return })
	g.Go(func() (err error) { ov.Returned, err = s.Txs.Weekly(ctx, domain.StatusReturned); return })
	g.Go(func() (err error) { dist, err = s.Books.CategoryDistribution(ctx); return })
	err := g.Wait()

	for name, n := range dist {
		ov.Distribution = append(ov.Distribution, Slice{Name: name, Count: n})
	}
	slices.SortFunc(ov.Distribution, func(a, b Slice) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return ov, err
}

// Peak is the largest count of a series, for scaling the bars.
func Peak(points []domain.StatPoint) int {
	m := 0
	for _, p := range points {
		m = max(m, p.Count)
	}
	return m
}
