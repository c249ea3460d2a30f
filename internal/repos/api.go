package repos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound matches any APIError with status 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer from the library backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == fiber.StatusNotFound
}

// Client calls the library REST backend. It is safe for concurrent use.
type Client struct {
	base    string
	timeout time.Duration
	http    *fiber.Client
	tracer  trace.Tracer
}

type Option func(*Client)

// WithTimeout bounds every call; a context deadline that is sooner wins.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer("libdesk/repos") }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &fiber.Client{
			UserAgent:   "libdesk",
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		},
		tracer: otel.GetTracerProvider().Tracer("libdesk/repos"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.base }

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.do(ctx, fiber.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(fiber.MethodGet, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	body, err := c.do(ctx, method, path, nil, in)
	if err != nil {
		return err
	}
	return decode(method, path, body, out)
}

// text returns the response body as a message, unquoting JSON strings.
func (c *Client) text(ctx context.Context, method, path string, in any) (string, error) {
	body, err := c.do(ctx, method, path, nil, in)
	if err != nil {
		return "", err
	}
	body = bytes.TrimSpace(body)
	var s string
	if json.Unmarshal(body, &s) == nil {
		return s, nil
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	uri := c.base + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", uri),
	)

	var a *fiber.Agent
	switch method {
	case fiber.MethodPost:
		a = c.http.Post(uri)
	case fiber.MethodPut:
		a = c.http.Put(uri)
	case fiber.MethodDelete:
		a = c.http.Delete(uri)
	default:
		a = c.http.Get(uri)
	}
	if t := c.deadline(ctx); t > 0 {
		a.Timeout(t)
	}
	if in != nil {
		a.JSON(in)
	}

	code, body, errs := a.Bytes()
	span.SetAttributes(attribute.Int("http.response.status_code", code))
	if len(errs) > 0 {
		err := fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, err
	}
	if code < 200 || code > 299 {
		err := &APIError{Method: method, Path: path, Status: code, Message: message(body)}
		span.SetStatus(codes.Error, strconv.Itoa(code))
		return nil, err
	}
	return body, nil
}

func (c *Client) deadline(ctx context.Context) time.Duration {
	t := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); t == 0 || left < t {
			t = left
		}
	}
	return t
}

func decode(method, path string, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// message pulls a human readable reason out of an error body.
func message(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &m) == nil {
		if m.Message != "" {
			return m.Message
		}
		if m.Error != "" {
			return m.Error
		}
	}
	var s string
	if json.Unmarshal(body, &s) == nil {
		return s
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// Message returns the backend's reason for err when there is one.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return ""
}
