package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	maxResponseBytes = int64(8 << 20)
	fetchAttempts    = 3
	fetchBaseDelay   = 500 * time.Millisecond
)

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 25 * time.Second,
	}
}

// fetchJSON GETs url with optional headers and decodes the body into out,
// retrying transient failures with backoff. 4xx other than 429 is not
// retried; it cannot heal on its own.
func fetchJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	if client == nil {
		client = newHTTPClient()
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			for k, v := range headers {
				req.Header.Set(k, v)
			}

			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer func() {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}()

			if resp.StatusCode >= 400 {
				err := fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
				if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
					return err
				}
				return retry.Unrecoverable(err)
			}

			b, err := readAllLimit(resp.Body, maxResponseBytes)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(b, out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("GET %s: decode: %w", url, err))
			}
			return nil
		},
		retry.Attempts(fetchAttempts),
		retry.Delay(fetchBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: max}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if lr.N <= 0 {
		return nil, fmt.Errorf("response too large")
	}
	return b, nil
}

func parseTimeOrNil(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func int64Ptr(v int64) *int64 {
	return &v
}

func capItems(items []Item, max int) []Item {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}

func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
