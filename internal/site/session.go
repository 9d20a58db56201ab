// Package site is the boundary to the host bot: one page fetch and one form
// submission per steward action, over a shared cookie-jar session.
package site

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	maxResponseBytes = 10 << 20 // safety cap on scraped pages
	userAgent        = "steward-bot/1.0"
)

// Pager is the slice of the host session the steward operations consume.
// Fetch retrieves a page by title, SubmitForm posts fields back to it. Login,
// timeouts and concurrency safety belong to the implementation.
type Pager interface {
	Fetch(ctx context.Context, pageTitle string, escapeTitle bool, extra url.Values) (string, error)
	SubmitForm(ctx context.Context, pageTitle string, fields url.Values) (string, error)
}

// Session talks to one wiki through index.php. The zero value is not usable;
// construct with NewSession.
type Session struct {
	Scheme string // https unless overridden for tests
	Host   string // e.g. "meta.wikimedia.org"
	Path   string // script path prefix, e.g. "/w"
	Debug  bool
	HTTP   *http.Client
	Log    *log.Logger
}

var _ Pager = (*Session)(nil)

func NewSession(host, scriptPath string) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		Scheme: "https",
		Host:   host,
		Path:   strings.TrimRight(scriptPath, "/"),
		HTTP: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		Log: log.Default(),
	}
}

// Fetch retrieves the rendered page for pageTitle. extra is appended to the
// query string; escapeTitle applies query escaping for titles that carry
// reserved characters.
func (s *Session) Fetch(ctx context.Context, pageTitle string, escapeTitle bool, extra url.Values) (string, error) {
	target := s.pageURL(pageTitle, escapeTitle, extra)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	body, status, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageTitle, err)
	}
	if s.Debug {
		s.Log.Debug("fetched page", "title", pageTitle, "status", status, "bytes", len(body))
	}
	return body, nil
}

// SubmitForm posts fields back to pageTitle as a form submission.
func (s *Session) SubmitForm(ctx context.Context, pageTitle string, fields url.Values) (string, error) {
	target := s.pageURL(pageTitle, false, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(fields.Encode()))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", pageTitle, err)
	}
	if s.Debug {
		s.Log.Debug("submitted form", "title", pageTitle, "status", status, "fields", len(fields))
	}
	return body, nil
}

func (s *Session) do(req *http.Request) (string, int, error) {
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return string(body), resp.StatusCode, nil
}

func (s *Session) pageURL(pageTitle string, escapeTitle bool, extra url.Values) string {
	title := pageTitle
	if escapeTitle {
		title = url.QueryEscape(pageTitle)
	} else {
		// titles routinely carry "/" and ":"; only spaces need mapping
		title = strings.ReplaceAll(title, " ", "_")
	}

	rawQuery := "title=" + title
	if encoded := extra.Encode(); encoded != "" {
		rawQuery += "&" + encoded
	}

	u := url.URL{
		Scheme:   s.Scheme,
		Host:     s.Host,
		Path:     s.Path + "/index.php",
		RawQuery: rawQuery,
	}
	return u.String()
}
