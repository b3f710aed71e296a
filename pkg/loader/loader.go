// CLAUDE:SUMMARY Single-attempt HTTP fetcher for survey CSV and map documents, with BOM stripping and declared-encoding transcoding.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/qoparu/qoparu/pkg/survey"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 32 * 1024 * 1024

// Loader fetches documents over HTTP. Every call is one independent GET:
// no retry, no cache, no coalescing of concurrent calls.
type Loader struct {
	client   *http.Client
	encoding string
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithClient sets the HTTP client. The default is http.DefaultClient.
func WithClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithEncoding declares the character encoding of fetched text
// (any WHATWG label, e.g. "windows-1251"). Empty or utf-8 means no transcoding.
func WithEncoding(enc string) Option {
	return func(l *Loader) { l.encoding = enc }
}

// WithLogger sets the logger used for failed loads.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New builds a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{client: http.DefaultClient, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches url and parses the body as survey CSV.
func (l *Loader) Load(ctx context.Context, url string) (*survey.ParsedCSV, error) {
	text, err := l.FetchText(ctx, url)
	if err != nil {
		return nil, err
	}
	data, err := survey.Parse(text)
	if err != nil {
		l.logger.Error("parse CSV", "url", url, "error", err)
		return nil, err
	}
	return data, nil
}

// FetchText fetches url and decodes the body to a UTF-8 string.
func (l *Loader) FetchText(ctx context.Context, url string) (string, error) {
	body, err := l.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return l.Decode(body)
}

// Fetch performs a single GET and returns the raw body.
func (l *Loader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Error("fetch failed", "url", url, "error", err)
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.logger.Error("fetch failed", "url", url, "status", resp.StatusCode)
		return nil, &NetworkError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// Decode strips a UTF-8 BOM and transcodes body from the configured
// encoding. Local files go through it too so they read the same as
// downloads. Failures are *survey.FormatError.
func (l *Loader) Decode(body []byte) (string, error) {
	text, err := l.decode(body)
	if err != nil {
		return "", &survey.FormatError{Reason: err.Error()}
	}
	return text, nil
}

func (l *Loader) decode(body []byte) (string, error) {
	var t transform.Transformer = unicode.BOMOverride(transform.Nop)
	if enc := l.encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return "", fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		t = e.NewDecoder()
	}
	out, _, err := transform.Bytes(t, body)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", l.encoding, err)
	}
	return string(out), nil
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
