package services_test

import (
	"context"
	"testing"
	"time"

	"libdesk/internal/repos"
	"libdesk/internal/services"
	"libdesk/internal/testutil/fakeapi"
	"libdesk/internal/validate"
)

func newAuth(t *testing.T) (*services.AuthService, *fakeapi.Server) {
	t.Helper()
	api := fakeapi.Seeded(t)
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	libs := repos.NewLibrarianRepo(repos.NewClient(api.URL))
	return services.NewAuthService(libs, repos.NewSessionRepo(db, time.Hour)), api
}

func TestAuthService_LoginLogout(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	if _, _, err := auth.Login(ctx, "admin", "wrong"); err != services.ErrBadCreds {
		t.Fatalf("want ErrBadCreds, got %v", err)
	}
	if _, _, err := auth.Login(ctx, " ", "x"); err != services.ErrBadCreds {
		t.Fatalf("want ErrBadCreds for blank username, got %v", err)
	}

	sid, sess, err := auth.Login(ctx, "admin", "Secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sid == "" || !sess.Authenticated || !sess.Admin || sess.LibrarianID != "lib-1" {
		t.Fatalf("unexpected session %q %+v", sid, sess)
	}
	cur, err := auth.Current(sid)
	if err != nil || cur.Username != "admin" {
		t.Fatalf("current: %+v %v", cur, err)
	}

	// each login gets its own id
	sid2, _, err := auth.Login(ctx, "admin", "Secret123")
	if err != nil || sid2 == sid {
		t.Fatalf("want a fresh sid, got %q (%v)", sid2, err)
	}

	if err := auth.Logout(sid); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Current(sid); err != repos.ErrNoSession {
		t.Fatalf("want ErrNoSession after logout, got %v", err)
	}
	if _, err := auth.Current(sid2); err != nil {
		t.Fatalf("other session should survive: %v", err)
	}
}

func TestAuthService_BackendDownIsNotBadCreds(t *testing.T) {
	auth, api := newAuth(t)
	api.Fail("POST /librarians/login", 502, "bad gateway")
	_, _, err := auth.Login(context.Background(), "admin", "Secret123")
	if err == nil || err == services.ErrBadCreds {
		t.Fatalf("want a backend error, got %v", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	auth, api := newAuth(t)
	ctx := context.Background()

	_, err := auth.ChangePassword(ctx, "admin", validate.PasswordInput{Old: "Secret123", New: "abcdef1", Confirm: "abcdef2"})
	if err != services.ErrPasswordMismatch {
		t.Fatalf("want ErrPasswordMismatch, got %v", err)
	}
	if api.Calls("POST /librarians/change") != 0 {
		t.Fatal("mismatch must not reach the backend")
	}

	msg, err := auth.ChangePassword(ctx, "admin", validate.PasswordInput{Old: "Secret123", New: "abcdef1", Confirm: "abcdef1"})
	if err != nil || msg != "Đổi mật khẩu thành công" {
		t.Fatalf("change: %q %v", msg, err)
	}
	if _, _, err := auth.Login(ctx, "admin", "abcdef1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAuthService_ForgotPassword(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	if err := auth.SendOTP(ctx, "nobody"); err == nil {
		t.Fatal("want error for unknown username")
	}
	if err := auth.SendOTP(ctx, "admin"); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if err := auth.ResetPassword(ctx, validate.ResetInput{Username: "admin", OTP: "000000", NewPassword: "newpass1"}); err == nil {
		t.Fatal("want error for wrong otp")
	}
	if err := auth.ResetPassword(ctx, validate.ResetInput{Username: "admin", OTP: "123456", NewPassword: "newpass1"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, _, err := auth.Login(ctx, "admin", "newpass1"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}
