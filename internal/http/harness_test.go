package handlers_test

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"

	"libdesk/internal/config"
	"libdesk/internal/http/handlers"
	"libdesk/internal/repos"
	"libdesk/internal/testutil/fakeapi"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// harness drives the full app against an in-process backend. It carries
// the csrf and session cookies between requests like a browser would.
type harness struct {
	t    *testing.T
	app  *fiber.App
	api  *fakeapi.Server
	csrf string
	sid  string
}

func testConfig(apiURL string) config.Config {
	return config.Config{
		APIBaseURL:   apiURL,
		APITimeout:   2 * time.Second,
		SessionDSN:   ":memory:",
		SessionTTL:   time.Hour,
		TemplatesDir: "../../web/templates",
		StaticDir:    "../../web/static",
	}
}

func newHarnessWith(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	api := fakeapi.Seeded(t)
	cfg.APIBaseURL = api.URL
	db, err := repos.OpenDB(cfg.SessionDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	app := handlers.NewApp(cfg, handlers.NewDeps(db, cfg, nil))
	return &harness{t: t, app: app, api: api}
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, testConfig(""))
}

// loggedIn returns a harness with an admin session.
func loggedIn(t *testing.T) *harness {
	h := newHarness(t)
	resp := h.login("admin", "Secret123")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login: expected 302, got %d", resp.StatusCode)
	}
	if h.sid == "" {
		t.Fatal("login did not set a session cookie")
	}
	h.api.ResetCalls()
	return h
}

func cookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (h *harness) do(req *http.Request) *http.Response {
	h.t.Helper()
	if h.csrf != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: h.csrf})
	}
	if h.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: h.sid})
	}
	resp, err := h.app.Test(req, 5000)
	if err != nil {
		h.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	if tok := cookie(resp, "csrf_"); tok != "" {
		h.csrf = tok
	}
	return resp
}

func (h *harness) get(target string) *http.Response {
	h.t.Helper()
	return h.do(httptest.NewRequest(http.MethodGet, target, nil))
}

// post submits form with the current csrf token, fetching one first if needed.
func (h *harness) post(target string, form url.Values) *http.Response {
	h.t.Helper()
	if h.csrf == "" {
		h.get("/admin/login")
		if h.csrf == "" {
			h.t.Fatal("csrf token missing")
		}
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", h.csrf)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) login(username, password string) *http.Response {
	h.t.Helper()
	resp := h.post("/admin/login", url.Values{"username": {username}, "password": {password}})
	if sid := cookie(resp, "sid"); sid != "" {
		h.sid = sid
	}
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Status int            `json:"status"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs collects the JSON log lines written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	oldW, oldFlags := log.Writer(), log.Flags()
	log.SetOutput(buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil && e.Action != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

// newFormRequest builds a form POST without any cookies.
func newFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
