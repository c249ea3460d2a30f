package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"libdesk/internal/domain"
	"libdesk/internal/listing"
	"libdesk/internal/repos"
	"libdesk/internal/validate"
)

const HistoryPageSize = 5

// Tabs of the history view, in display order.
var HistoryTabs = []domain.Status{domain.StatusBorrowed, domain.StatusReturned, domain.StatusRenewed}

type HistoryQuery struct {
	Tab  domain.Status
	Q    string
	Page int
}

type TransactionService struct {
	Txs     *repos.TransactionRepo
	Members *MemberService

	inflight singleflight.Group
}

func NewTransactionService(txs *repos.TransactionRepo, members *MemberService) *TransactionService {
	return &TransactionService{Txs: txs, Members: members}
}

func historyFields(t domain.Transaction) []string {
	return []string{t.MemberName, t.BookTitle, t.Author}
}

// History fetches one tab and applies the text filter and paging.
func (s *TransactionService) History(ctx context.Context, q HistoryQuery) (listing.Page[domain.Transaction], error) {
	all, err := s.Txs.List(ctx, q.Tab)
	if err != nil {
		return listing.Paginate[domain.Transaction](nil, 1, HistoryPageSize), err
	}
	rows := listing.Filter(all, q.Q, historyFields)
	return listing.Paginate(rows, q.Page, HistoryPageSize), nil
}

// Find looks a transaction up in the borrowed tab first. A transaction
// found only in another tab comes back with ErrNotBorrowed.
func (s *TransactionService) Find(ctx context.Context, id string) (domain.Transaction, error) {
	for _, tab := range HistoryTabs {
		list, err := s.Txs.List(ctx, tab)
		if err != nil {
			return domain.Transaction{}, err
		}
		for _, t := range list {
			if t.ID != id {
				continue
			}
			if !t.IsBorrowed() {
				return t, fmt.Errorf("transaction %s is %s: %w", id, t.Status, ErrNotBorrowed)
			}
			return t, nil
		}
	}
	return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
}

func actionFor(t domain.Transaction, phone string) repos.ActionRequest {
	return repos.ActionRequest{
		TransactionID: t.ID,
		MemberID:      t.MemberID,
		Name:          t.MemberName,
		Phone:         phone,
		BookID:        t.BookID,
		Title:         t.BookTitle,
	}
}

// Return closes a borrowed transaction using the phone it was opened with.
func (s *TransactionService) Return(ctx context.Context, t domain.Transaction) error {
	if !t.IsBorrowed() {
		return ErrNotBorrowed
	}
	return s.once(ctx, "return:"+t.ID, func(ctx context.Context) error {
		return s.Txs.Return(ctx, actionFor(t, t.Phone))
	})
}

// RenewFor finds the member a renewal is made for, matching by name.
func (s *TransactionService) RenewFor(ctx context.Context, t domain.Transaction) (domain.Member, error) {
	return s.Members.FindByName(ctx, t.MemberName)
}

// Renew extends a borrowed transaction. The phone comes from the member
// list; no matching member blocks the call.
func (s *TransactionService) Renew(ctx context.Context, t domain.Transaction) error {
	if !t.IsBorrowed() {
		return ErrNotBorrowed
	}
	m, err := s.RenewFor(ctx, t)
	if err != nil {
		return err
	}
	return s.once(ctx, "renew:"+t.ID, func(ctx context.Context) error {
		return s.Txs.Renew(ctx, actionFor(t, m.Phone))
	})
}

func (s *TransactionService) Borrow(ctx context.Context, in validate.BorrowInput) error {
	return s.Txs.Borrow(ctx, repos.BorrowRequest{Name: in.Name, Phone: in.Phone, Title: in.Title})
}

// once collapses concurrent submissions of the same action into one call.
// The call outlives a caller that goes away; the client timeout bounds it.
func (s *TransactionService) once(ctx context.Context, key string, fn func(context.Context) error) error {
	_, err, _ := s.inflight.Do(key, func() (any, error) {
		return nil, fn(context.WithoutCancel(ctx))
	})
	return err
}
