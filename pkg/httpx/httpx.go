// Package httpx is a small JSON-over-HTTP client built on fiber's fasthttp
// agent. It is shared by the listing, places and CRM clients.
package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout applies when neither the client nor the context set one
const DefaultTimeout = 15 * time.Second

var ErrRegistry = errx.NewRegistry("HTTP")

var (
	CodeRequestFailed = ErrRegistry.Register("REQUEST_FAILED", errx.TypeExternal, http.StatusBadGateway, "Outbound request failed")
	CodeBadStatus     = ErrRegistry.Register("BAD_STATUS", errx.TypeExternal, http.StatusBadGateway, "Outbound request returned an error status")
)

// Request describes one outbound call
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	JSON    any // encoded as the request body when non-nil
}

// Client performs outbound requests
type Client struct {
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{timeout: timeout}
}

// Do executes req and returns the body of a 2xx response.
// Non-2xx responses return CodeBadStatus with the status and body attached.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = fiber.MethodGet
	}

	agent := fiber.AcquireAgent()
	r := agent.Request()
	r.Header.SetMethod(method)
	r.SetRequestURI(withQuery(req.URL, req.Query))
	for k, v := range req.Headers {
		r.Header.Set(k, v)
	}
	if req.JSON != nil {
		agent.JSON(req.JSON)
	}
	agent.Timeout(c.effectiveTimeout(ctx))

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return nil, ErrRegistry.New(CodeRequestFailed).WithCause(err).WithDetail("url", req.URL)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, ErrRegistry.New(CodeRequestFailed).
			WithCause(errors.Join(errs...)).
			WithDetail("url", req.URL)
	}
	if code < 200 || code > 299 {
		return body, ErrRegistry.New(CodeBadStatus).
			WithDetail("url", req.URL).
			WithDetail("status", code).
			WithDetail("body", truncate(string(body), 512))
	}

	return body, nil
}

// Get is Do with GET
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, Request{Method: fiber.MethodGet, URL: rawURL, Query: query, Headers: headers})
}

// PostJSON is Do with POST and a JSON body
func (c *Client) PostJSON(ctx context.Context, rawURL string, headers map[string]string, body any) ([]byte, error) {
	return c.Do(ctx, Request{Method: fiber.MethodPost, URL: rawURL, Headers: headers, JSON: body})
}

// StatusCode extracts the response status from a CodeBadStatus error
// anywhere in err's chain
func StatusCode(err error) (int, bool) {
	for err != nil {
		var e *errx.Error
		if !errors.As(err, &e) {
			return 0, false
		}
		if e.Code == CodeBadStatus {
			code, ok := e.Details["status"].(int)
			return code, ok
		}
		err = e.Err
	}
	return 0, false
}

// IsRetryable reports whether a failed call is worth repeating
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code, ok := StatusCode(err); ok {
		return code == http.StatusTooManyRequests || code >= 500
	}
	return true
}

func (c *Client) effectiveTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func withQuery(rawURL string, query url.Values) string {
	if len(query) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + query.Encode()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
