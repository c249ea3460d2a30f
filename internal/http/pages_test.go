package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"libdesk/internal/services"
)

func TestPublicCatalog(t *testing.T) {
	h := newHarness(t)

	resp := h.get("/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("home: expected 200, got %d", resp.StatusCode)
	}
	s := body(t, resp)
	for _, c := range services.Taxonomy {
		if !strings.Contains(s, c.Name) {
			t.Fatalf("category %q missing from home; body=%s", c.Name, s)
		}
	}

	resp = h.get(services.Path("Truyện Tranh/Manga", "Manga"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("subcategory: expected 200, got %d", resp.StatusCode)
	}
	s = body(t, resp)
	if !strings.Contains(s, "One Piece") || strings.Contains(s, "Dune") {
		t.Fatalf("subcategory books wrong; body=%s", s)
	}

	resp = h.get(services.Path("Văn Học", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("category: expected 200, got %d", resp.StatusCode)
	}
	if h.api.Calls("GET /books") != 1 {
		t.Fatalf("category page without a subcategory should not list books, calls=%d", h.api.Calls("GET /books"))
	}
}

func TestPublicCatalogUnknown(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{
		"/category/khong-co",
		services.Path("Văn Học", "Manga"),
		services.Path("Thiếu Nhi", "Không Có"),
	} {
		if resp := h.get(path); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestOverview(t *testing.T) {
	h := loggedIn(t)

	s := body(t, h.get("/admin/overview"))
	for _, want := range []string{"<strong>3</strong>", "<strong>2</strong>", "01/05/2024", "Văn Học"} {
		if !strings.Contains(s, want) {
			t.Fatalf("%q missing from overview; body=%s", want, s)
		}
	}
	if strings.Contains(s, "Một số số liệu không tải được") {
		t.Fatalf("overview marked degraded; body=%s", s)
	}
}

func TestOverviewDegradesOnPartialFailure(t *testing.T) {
	h := loggedIn(t)
	h.api.Fail("GET /members/count", http.StatusInternalServerError, "boom")

	resp := h.get("/admin/overview")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	s := body(t, resp)
	if !strings.Contains(s, "Một số số liệu không tải được") {
		t.Fatalf("degraded notice missing; body=%s", s)
	}
	if !strings.Contains(s, "<strong>3</strong>") {
		t.Fatalf("book count lost with the member count; body=%s", s)
	}
	if strings.Contains(s, "boom") {
		t.Fatalf("backend detail leaked; body=%s", s)
	}
}

func TestCategoriesRename(t *testing.T) {
	h := loggedIn(t)

	s := body(t, h.get("/admin/categories"))
	if !strings.Contains(s, "Văn Học Đương Đại") || !strings.Contains(s, "Truyện Tranh/Manga") {
		t.Fatalf("category rows missing; body=%s", s)
	}
	s = body(t, h.get("/admin/categories?edit=Comic"))
	if !strings.Contains(s, `name="newName" value="Comic"`) {
		t.Fatalf("rename form not shown; body=%s", s)
	}

	resp := h.post("/admin/categories", url.Values{"oldName": {"Comic"}, "newName": {""}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank name: expected 400, got %d", resp.StatusCode)
	}
	if n := h.api.WriteCalls(); n != 0 {
		t.Fatalf("expected no backend writes, got %d", n)
	}

	resp = h.post("/admin/categories", url.Values{"oldName": {"Comic"}, "newName": {"Comic Âu Mỹ"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/categories?done=renamed" {
		t.Fatalf("expected redirect, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if h.api.Calls("PUT /books/categories/update") != 1 {
		t.Fatal("rename not sent")
	}
	if s := body(t, h.get("/admin/categories?done=renamed")); !strings.Contains(s, "Comic Âu Mỹ") {
		t.Fatalf("renamed category missing; body=%s", s)
	}
}

func TestAdminDispatch(t *testing.T) {
	h := loggedIn(t)

	resp := h.get("/admin")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/overview" {
		t.Fatalf("expected redirect to overview, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	for _, path := range []string{"/admin/books/list", "/admin/books/add", "/admin/readers/list", "/admin/readers/add", "/admin/borrows/add", "/admin/borrows/history"} {
		if resp := h.get(path); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}

	var resp404 *http.Response
	entries := captureLogs(t, func() {
		resp404 = h.get("/admin/wishlist/list")
	})
	if resp404.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown page: expected 404, got %d", resp404.StatusCode)
	}
	if _, ok := findLog(entries, "admin.page.unknown"); !ok {
		t.Fatalf("unknown page not logged; entries=%v", entries)
	}
}

func TestBookFormListsBackendCategories(t *testing.T) {
	h := loggedIn(t)

	s := body(t, h.get("/admin/books/add"))
	if !strings.Contains(s, `<optgroup label="Truyện Tranh/Manga">`) {
		t.Fatalf("optgroup missing; body=%s", s)
	}
	if !strings.Contains(s, `data-main="Truyện Tranh/Manga"`) {
		t.Fatalf("subcategory owner missing; body=%s", s)
	}
}

func TestNotFoundAndHealth(t *testing.T) {
	h := newHarness(t)

	resp := h.get("/no/such/page")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if s := body(t, resp); !strings.Contains(s, "Không tìm thấy trang") {
		t.Fatalf("not found message missing; body=%s", s)
	}
	resp = h.get("/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", resp.StatusCode)
	}
}

func TestErrorHandlerFriendlyMessage(t *testing.T) {
	cfg := testConfig("")
	cfg.TemplatesDir = t.TempDir() // every render fails
	h := newHarnessWith(t, cfg)

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = h.get("/")
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	s := body(t, resp)
	if !strings.Contains(s, "Có lỗi xảy ra, vui lòng thử lại.") {
		t.Fatalf("friendly message missing; body=%s", s)
	}
	if strings.Contains(s, "template") || strings.Contains(s, "home") {
		t.Fatalf("internal details leaked to user; body=%s", s)
	}
	if e, ok := findLog(entries, "server.error"); !ok || e.Err == "" {
		t.Fatalf("server.error not logged with cause; entries=%v", entries)
	}
}

func TestLoginThrottle(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 10; i++ {
		if resp := h.login("admin", "wrong"); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.StatusCode)
		}
	}
	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = h.login("admin", "Secret123")
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after throttle, got %d", resp.StatusCode)
	}
	if s := body(t, resp); !strings.Contains(s, "Bạn thao tác quá nhiều lần") {
		t.Fatalf("throttle message missing; body=%s", s)
	}
	if _, ok := findLog(entries, "rate.login.hit"); !ok {
		t.Fatalf("throttle not logged; entries=%v", entries)
	}
	if n := h.api.Calls("POST /librarians/login"); n != 10 {
		t.Fatalf("expected 10 backend logins, got %d", n)
	}
}

func TestBodySizeLimit(t *testing.T) {
	h := loggedIn(t)
	h.get("/admin/books/add")

	oversize := bytes.Repeat([]byte("A"), (1<<20)+10)
	req := httptest.NewRequest(http.MethodPost, "/admin/books/add", bytes.NewReader(oversize))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: h.csrf})
	req.AddCookie(&http.Cookie{Name: "sid", Value: h.sid})
	resp, err := h.app.Test(req, 5000)
	// fasthttp drops oversized bodies before a response is written
	switch {
	case err != nil && !strings.Contains(err.Error(), "body size exceeds"):
		t.Fatalf("unexpected error: %v", err)
	case err == nil && resp.StatusCode != http.StatusRequestEntityTooLarge:
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	if n := h.api.WriteCalls(); n != 0 {
		t.Fatalf("expected no backend writes, got %d", n)
	}
}
