// Package httpclient is the HTTP adapter the flow stages talk through.
// It returns every HTTP response, success or error status, through the
// same shape: stages assert on 401 and 302 payloads just as they do on
// 200s, so a non-2xx status must never become a Go error. Only genuine
// transport failures (connection refused, timeout) surface as errors.
package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	errs "github.com/jrsteele09/go-auth-e2e/internal/errors"
)

// Response carries everything a stage needs to assert on.
type Response struct {
	StatusCode int
	Body       string
	Header     http.Header
}

// Location returns the redirect target of a 3xx response, or "".
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// Request describes one outgoing call. Form and RawBody are mutually
// exclusive: when Form is set the body is URL-encoded and the request
// is given a form content type; RawBody is sent verbatim. Header
// entries merge over (and override) the defaults set here. Redirects
// are followed unless NoFollowRedirects is set, in which case a 3xx
// response is returned unfollowed so its Location header can be
// inspected.
type Request struct {
	Method            string
	URL               string
	Form              url.Values
	RawBody           string
	Header            map[string]string
	NoFollowRedirects bool
}

// Client issues requests against the auth backend. Two underlying
// http.Clients are kept: the default one, and one whose CheckRedirect
// returns http.ErrUseLastResponse so 302s surface to the caller. The
// suppression is an explicit policy, not an error-handling side effect.
type Client struct {
	std        *http.Client
	noRedirect *http.Client
}

func New(timeout time.Duration) *Client {
	return &Client{
		std: &http.Client{Timeout: timeout},
		noRedirect: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Do performs the request and reads the full body, whatever the status.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.RawBody != "":
		body = strings.NewReader(req.RawBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errs.Wrapf(err, "httpclient.Do build request")
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	hc := c.std
	if req.NoFollowRedirects {
		hc = c.noRedirect
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, errs.Wrapf(err, "httpclient.Do %s %s", req.Method, req.URL)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrapf(err, "httpclient.Do read body")
	}

	log.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Msg("request completed")

	return &Response{StatusCode: resp.StatusCode, Body: string(b), Header: resp.Header}, nil
}

// Get issues a GET with optional extra headers, following redirects.
func (c *Client) Get(ctx context.Context, url string, header map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url, Header: header})
}

// Post issues a bodiless POST with optional extra headers.
func (c *Client) Post(ctx context.Context, url string, header map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, Header: header})
}

// PostForm issues a form-encoded POST.
func (c *Client) PostForm(ctx context.Context, url string, form url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, Form: form})
}
