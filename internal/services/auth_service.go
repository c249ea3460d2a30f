package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"libdesk/internal/domain"
	"libdesk/internal/repos"
	"libdesk/internal/validate"
)

type AuthService struct {
	Librarians *repos.LibrarianRepo
	Sessions   *repos.SessionRepo
}

func NewAuthService(libs *repos.LibrarianRepo, sessions *repos.SessionRepo) *AuthService {
	return &AuthService{Librarians: libs, Sessions: sessions}
}

// Login checks the credentials with the backend and opens a session under a
// fresh id, which the caller puts in the sid cookie.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, ErrBadCreds
	}
	l, err := s.Librarians.Login(ctx, username, password)
	if errors.Is(err, repos.ErrNotFound) {
		return "", nil, ErrBadCreds
	}
	if err != nil {
		return "", nil, err
	}
	if l.ID == "" {
		return "", nil, ErrBadCreds
	}
	sess := domain.Session{
		LibrarianID:   l.ID,
		Username:      l.Username,
		DisplayName:   l.Name,
		Authenticated: true,
		Admin:         l.IsAdmin(),
	}
	if sess.Username == "" {
		sess.Username = username
	}
	sid := uuid.NewString()
	if err := s.Sessions.Bind(sid, sess); err != nil {
		return "", nil, err
	}
	return sid, &sess, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Sessions.Unbind(sid)
}

func (s *AuthService) Current(sid string) (*domain.Session, error) {
	if sid == "" {
		return nil, repos.ErrNoSession
	}
	return s.Sessions.Get(sid)
}

// ChangePassword returns the backend's confirmation message.
func (s *AuthService) ChangePassword(ctx context.Context, username string, in validate.PasswordInput) (string, error) {
	if in.New != in.Confirm {
		return "", ErrPasswordMismatch
	}
	return s.Librarians.ChangePassword(ctx, username, in.Old, in.New)
}

func (s *AuthService) SendOTP(ctx context.Context, username string) error {
	return s.Librarians.SendOTP(ctx, strings.TrimSpace(username))
}

func (s *AuthService) ResetPassword(ctx context.Context, in validate.ResetInput) error {
	return s.Librarians.ResetPassword(ctx, in.Username, in.OTP, in.NewPassword)
}
