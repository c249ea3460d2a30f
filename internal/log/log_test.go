package log

import (
	"bytes"
	"errors"
	stdlog "log"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"

	"libdesk/internal/domain"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := stdlog.Writer(), stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	t.Cleanup(func() {
		stdlog.SetOutput(prevOut)
		stdlog.SetFlags(prevFlags)
	})
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		m := map[string]any{}
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line is not JSON: %q", line)
		}
		out = append(out, m)
	}
	return out
}

func TestEntriesCarryRequestAndSession(t *testing.T) {
	buf := capture(t)
	app := fiber.New()
	app.Post("/admin/books/add", func(c *fiber.Ctx) error {
		c.Locals("requestid", "rid-1")
		c.Locals("session", &domain.Session{LibrarianID: "lib-1", Username: "admin"})
		c.Status(fiber.StatusFound)
		Audit(c, "admin.books.add", Fields{"title": "Dune"})
		Error(c, "admin.books.add.fail", errors.New("backend down"), nil)
		return nil
	})
	if _, err := app.Test(httptest.NewRequest("POST", "/admin/books/add", nil)); err != nil {
		t.Fatal(err)
	}

	got := decode(t, buf)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d: %s", len(got), buf.String())
	}
	audit := got[0]
	if audit["level"] != "audit" || audit["action"] != "admin.books.add" {
		t.Fatalf("unexpected audit entry: %v", audit)
	}
	if audit["req_id"] != "rid-1" || audit["user_id"] != "lib-1" || audit["username"] != "admin" {
		t.Fatalf("request or session context missing: %v", audit)
	}
	if audit["path"] != "/admin/books/add" || audit["method"] != "POST" || audit["status"] != float64(302) {
		t.Fatalf("request line missing: %v", audit)
	}
	if f, _ := audit["fields"].(map[string]any); f["title"] != "Dune" {
		t.Fatalf("fields missing: %v", audit)
	}
	if got[1]["level"] != "error" || got[1]["err"] != "backend down" {
		t.Fatalf("unexpected error entry: %v", got[1])
	}
}

func TestSecurityWithoutContext(t *testing.T) {
	buf := capture(t)
	Security(nil, "rate.login.hit", nil)

	got := decode(t, buf)
	if got[0]["level"] != "warn" || got[0]["action"] != "rate.login.hit" {
		t.Fatalf("unexpected entry: %v", got[0])
	}
	if _, ok := got[0]["path"]; ok {
		t.Fatalf("nil context should leave request fields out: %v", got[0])
	}
}
