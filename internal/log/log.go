// Package log writes one JSON line per request event through the standard
// logger, so the output follows log.SetOutput.
package log

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"

	"libdesk/internal/domain"
)

type level string

const (
	levelAudit    level = "audit"
	levelSecurity level = "warn"
	levelError    level = "error"
)

// Fields carries event specific values.
type Fields = map[string]any

type entry struct {
	TS       string `json:"ts"`
	Level    level  `json:"level"`
	Action   string `json:"action"`
	ReqID    string `json:"req_id,omitempty"`
	IP       string `json:"ip,omitempty"`
	Method   string `json:"method,omitempty"`
	Path     string `json:"path,omitempty"`
	Status   int    `json:"status,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Err      string `json:"err,omitempty"`
	Fields   Fields `json:"fields,omitempty"`
}

func newEntry(lv level, c *fiber.Ctx, action string) entry {
	e := entry{TS: time.Now().UTC().Format(time.RFC3339Nano), Level: lv, Action: action}
	if c == nil {
		return e
	}
	e.IP, e.Method, e.Path = c.IP(), c.Method(), c.Path()
	e.Status = c.Response().StatusCode()
	e.ReqID, _ = c.Locals("requestid").(string)
	if s, ok := c.Locals("session").(*domain.Session); ok && s != nil {
		e.UserID, e.Username = s.LibrarianID, s.Username
	}
	return e
}

func emit(e entry) {
	b, err := jsoniter.ConfigFastest.Marshal(e)
	if err != nil {
		log.Printf(`{"level":"error","action":"log.encode","err":%q}`, err.Error())
		return
	}
	log.Println(string(b))
}

// Audit records a completed write made by a librarian.
func Audit(c *fiber.Ctx, action string, fields Fields) {
	e := newEntry(levelAudit, c, action)
	e.Fields = fields
	emit(e)
}

// Security records refused, throttled or suspicious requests.
func Security(c *fiber.Ctx, action string, fields Fields) {
	e := newEntry(levelSecurity, c, action)
	e.Fields = fields
	emit(e)
}

func Error(c *fiber.Ctx, action string, err error, fields Fields) {
	e := newEntry(levelError, c, action)
	if err != nil {
		e.Err = err.Error()
	}
	e.Fields = fields
	emit(e)
}
