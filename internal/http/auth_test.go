package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"libdesk/internal/domain"
	"libdesk/internal/testutil/fakeapi"
)

func TestLoginFailRendersUnauthorized(t *testing.T) {
	h := newHarness(t)

	resp := h.login("admin", "wrong-pass")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad creds, got %d", resp.StatusCode)
	}
	if s := body(t, resp); !strings.Contains(s, "Tên đăng nhập hoặc mật khẩu không đúng") {
		t.Fatalf("error message missing; body=%s", s)
	}
	if h.sid != "" {
		t.Fatal("session cookie set on failed login")
	}
}

func TestLoginSuccessOpensSession(t *testing.T) {
	h := newHarness(t)

	resp := h.login("admin", "Secret123")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect on success, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/admin/overview" {
		t.Fatalf("expected redirect to overview, got %q", loc)
	}

	resp = h.get("/admin/overview")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("overview: expected 200, got %d", resp.StatusCode)
	}
	if s := body(t, resp); !strings.Contains(s, "Thủ Thư") {
		t.Fatalf("librarian name missing from header; body=%s", s)
	}

	// a second login replaces the session id
	old := h.sid
	h.login("admin", "Secret123")
	if h.sid == old {
		t.Fatal("session id was reused across logins")
	}
}

func TestLoginRequiresCSRF(t *testing.T) {
	h := newHarness(t)
	form := url.Values{"username": {"admin"}, "password": {"Secret123"}}
	req := newFormRequest("/admin/login", form)
	resp, err := h.app.Test(req, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf, got %d", resp.StatusCode)
	}
	if h.api.Calls("POST /librarians/login") != 0 {
		t.Fatal("backend called despite csrf failure")
	}
}

func TestAdminGuard(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/admin", "/admin/overview", "/admin/books/list", "/admin/borrows/t-1/return"} {
		resp := h.get(path)
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/login" {
			t.Fatalf("%s: expected redirect to login, got %d %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	resp := h.get("/api/v1/books/suggest?q=du")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("suggest: expected 401, got %d", resp.StatusCode)
	}
	if h.api.Calls("GET /books/search") != 0 {
		t.Fatal("backend searched for an anonymous caller")
	}
}

func TestAdminGuardRejectsNonAdmin(t *testing.T) {
	h := newHarness(t)
	h.api.Edit(func(s *fakeapi.Server) {
		s.Accounts["clerk"] = &fakeapi.Account{
			Password:  "Clerk123",
			Librarian: domain.Librarian{ID: "lib-2", Username: "clerk", Name: "Clerk", Role: "staff"},
		}
	})
	if resp := h.login("clerk", "Clerk123"); resp.StatusCode != http.StatusFound {
		t.Fatalf("login: expected 302, got %d", resp.StatusCode)
	}

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = h.get("/admin/overview")
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}
	e, ok := findLog(entries, "access.denied.admin")
	if !ok {
		t.Fatalf("access.denied.admin not logged; entries=%v", entries)
	}
	if e.UserID != "lib-2" {
		t.Fatalf("expected user_id lib-2, got %q", e.UserID)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	h := loggedIn(t)

	resp := h.post("/admin/logout", nil)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/login" {
		t.Fatalf("expected redirect to login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	// the old cookie no longer maps to a session
	resp = h.get("/admin/overview")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after logout, got %d", resp.StatusCode)
	}
}

func TestForgotPasswordFlow(t *testing.T) {
	h := newHarness(t)

	resp := h.post("/admin/login/forgot-password", url.Values{"step": {"otp"}, "username": {"admin"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send otp: expected 200, got %d", resp.StatusCode)
	}
	if s := body(t, resp); !strings.Contains(s, `name="otp"`) {
		t.Fatalf("reset step not shown; body=%s", s)
	}

	resp = h.post("/admin/login/forgot-password", url.Values{
		"step": {"reset"}, "username": {"admin"}, "otp": {"000000"}, "newPassword": {"NewSecret1"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong otp: expected 400, got %d", resp.StatusCode)
	}

	resp = h.post("/admin/login/forgot-password", url.Values{
		"step": {"reset"}, "username": {"admin"}, "otp": {"123456"}, "newPassword": {"NewSecret1"},
	})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/login?done=reset" {
		t.Fatalf("reset: expected redirect to login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if resp := h.login("admin", "NewSecret1"); resp.StatusCode != http.StatusFound {
		t.Fatalf("login with new password: expected 302, got %d", resp.StatusCode)
	}
}

func TestChangePassword(t *testing.T) {
	h := loggedIn(t)

	resp := h.post("/admin/password", url.Values{
		"oldPassword": {"Secret123"}, "newPassword": {"Another1"}, "confirmPassword": {"Another2"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatch: expected 400, got %d", resp.StatusCode)
	}
	if h.api.Calls("POST /librarians/change") != 0 {
		t.Fatal("backend called for mismatched confirmation")
	}

	resp = h.post("/admin/password", url.Values{
		"oldPassword": {"nope"}, "newPassword": {"Another1"}, "confirmPassword": {"Another1"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong old password: expected 400, got %d", resp.StatusCode)
	}
	if s := body(t, resp); !strings.Contains(s, "Mật khẩu cũ không đúng") {
		t.Fatalf("backend reason missing; body=%s", s)
	}

	resp = h.post("/admin/password", url.Values{
		"oldPassword": {"Secret123"}, "newPassword": {"Another1"}, "confirmPassword": {"Another1"},
	})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if got := h.api.LastBody("POST /librarians/change")["username"]; got != "admin" {
		t.Fatalf("expected username admin in change request, got %v", got)
	}
}
