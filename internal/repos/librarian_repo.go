package repos

import (
	"context"

	"libdesk/internal/domain"
)

type LibrarianRepo struct{ api *Client }

func NewLibrarianRepo(api *Client) *LibrarianRepo { return &LibrarianRepo{api: api} }

func (r *LibrarianRepo) Login(ctx context.Context, username, password string) (domain.Librarian, error) {
	var out domain.Librarian
	err := r.api.send(ctx, "POST", "/librarians/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	return out, err
}

// ChangePassword returns the backend's confirmation text.
func (r *LibrarianRepo) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) (string, error) {
	return r.api.text(ctx, "POST", "/librarians/change", map[string]string{
		"username":    username,
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	})
}

func (r *LibrarianRepo) SendOTP(ctx context.Context, username string) error {
	return r.api.send(ctx, "POST", "/librarians/send-otp", map[string]string{"username": username}, nil)
}

func (r *LibrarianRepo) ResetPassword(ctx context.Context, username, otp, newPassword string) error {
	return r.api.send(ctx, "POST", "/librarians/reset", map[string]string{
		"username":    username,
		"otp":         otp,
		"newPassword": newPassword,
	}, nil)
}
