package repos

import (
	"context"
	"net/url"

	"libdesk/internal/domain"
)

type BorrowRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phoneNumber"`
	Title string `json:"title"`
}

// ActionRequest is the body of the return and renew endpoints.
type ActionRequest struct {
	TransactionID string `json:"transactionId"`
	MemberID      string `json:"memberId"`
	Name          string `json:"name"`
	Phone         string `json:"phoneNumber"`
	BookID        string `json:"bookId"`
	Title         string `json:"title"`
}

type TransactionRepo struct{ api *Client }

func NewTransactionRepo(api *Client) *TransactionRepo { return &TransactionRepo{api: api} }

func (r *TransactionRepo) List(ctx context.Context, status domain.Status) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := r.api.get(ctx, "/transactions/"+string(status), nil, &out)
	return out, err
}

func (r *TransactionRepo) Borrow(ctx context.Context, req BorrowRequest) error {
	return r.api.send(ctx, "POST", "/transactions/borrow", req, nil)
}

func (r *TransactionRepo) Return(ctx context.Context, req ActionRequest) error {
	return r.api.send(ctx, "POST", "/transactions/return", req, nil)
}

func (r *TransactionRepo) Renew(ctx context.Context, req ActionRequest) error {
	return r.api.send(ctx, "POST", "/transactions/renew", req, nil)
}

func (r *TransactionRepo) Count(ctx context.Context, status domain.Status) (int, error) {
	var n int
	err := r.api.get(ctx, "/transactions/count/"+string(status), nil, &n)
	return n, err
}

// Weekly returns the per-day series for a transaction type ("borrowed" or "returned").
func (r *TransactionRepo) Weekly(ctx context.Context, status domain.Status) ([]domain.StatPoint, error) {
	q := url.Values{}
	q.Set("transactionType", string(status))
	var out []domain.StatPoint
	err := r.api.get(ctx, "/transactions/statistics", q, &out)
	return out, err
}
