package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// CheckResult is the outcome of probing one source.
type CheckResult struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
	Status   int    `json:"status"`
	Error    string `json:"error,omitempty"`
}

// OK reports a 2xx or 3xx answer.
func (r CheckResult) OK() bool {
	return r.Status >= 200 && r.Status < 400
}

// Checker probes every configured source URL on an interval and records
// the result in the sources DB.
type Checker struct {
	sources  *DB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// NewChecker creates a Checker that probes source URLs every interval.
func NewChecker(sources *DB, logger *slog.Logger, interval time.Duration) *Checker {
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start probes immediately, then on every tick until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll probes every source that has a URL. Sources without one are
// skipped and not reported.
func (c *Checker) CheckAll(ctx context.Context) []CheckResult {
	list, err := c.sources.ListSources()
	if err != nil {
		c.logger.Error("source check: list failed", "error", err)
		return nil
	}

	var results []CheckResult
	failed := 0
	for _, src := range list {
		if ctx.Err() != nil {
			break
		}
		if src.URL == "" {
			continue
		}

		res := c.probe(ctx, src)
		if err := c.sources.UpdateCheck(src.ID, res.Status, res.Error); err != nil {
			c.logger.Error("source check: update failed", "source", src.ID, "error", err)
		}
		if !res.OK() {
			failed++
			c.logger.Warn("source unreachable", "source", src.ID, "url", src.URL, "status", res.Status, "error", res.Error)
		}
		results = append(results, res)
	}

	c.logger.Info("source check complete", "checked", len(results), "failed", failed)
	return results
}

func (c *Checker) probe(ctx context.Context, src Source) CheckResult {
	res := CheckResult{SourceID: src.ID, URL: src.URL}

	status, err := c.request(ctx, http.MethodHead, src.URL)
	// Published spreadsheet exports often refuse HEAD.
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.request(ctx, http.MethodGet, src.URL)
	}
	res.Status = status
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// request returns the response status, 0 on network error. GET bodies are
// limited to the first byte.
func (c *Checker) request(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, url, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	resp.Body.Close()
	return resp.StatusCode, nil
}
