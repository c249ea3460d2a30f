package repos

import (
	"context"
	"net/url"

	"libdesk/internal/domain"
)

type MemberRepo struct{ api *Client }

func NewMemberRepo(api *Client) *MemberRepo { return &MemberRepo{api: api} }

func (r *MemberRepo) List(ctx context.Context) ([]domain.Member, error) {
	var out []domain.Member
	err := r.api.get(ctx, "/members", nil, &out)
	return out, err
}

func (r *MemberRepo) Create(ctx context.Context, m domain.Member) (domain.Member, error) {
	var out domain.Member
	err := r.api.send(ctx, "POST", "/members", m, &out)
	return out, err
}

func (r *MemberRepo) Update(ctx context.Context, memberID string, patch map[string]any) (domain.Member, error) {
	var out domain.Member
	err := r.api.send(ctx, "PUT", "/members/update/"+url.PathEscape(memberID), patch, &out)
	return out, err
}

func (r *MemberRepo) Delete(ctx context.Context, memberID string) error {
	return r.api.send(ctx, "DELETE", "/members/delete/"+url.PathEscape(memberID), nil, nil)
}

func (r *MemberRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.api.get(ctx, "/members/count", nil, &n)
	return n, err
}
