package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
)

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// retryable reports whether a status is worth another attempt.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, statusOverloaded:
		return true
	}
	return false
}

// doWithRetry executes an HTTP request, retrying rate-limit and overload
// responses with exponential backoff. The body is rebuilt from payload on
// every attempt since the reader is consumed.
func doWithRetry(ctx context.Context, client *http.Client, req *http.Request, payload []byte, maxRetries int) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req.Body = io.NopCloser(bytes.NewReader(payload))
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}
		resp.Body.Close()

		wait := retryDelay(resp, attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// retryDelay honours Retry-After (seconds or HTTP date) and otherwise backs
// off 1s, 2s, 4s, ... capped at maxRetryDelay.
func retryDelay(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			return capDelay(time.Duration(secs) * time.Second)
		}
		if at, err := http.ParseTime(ra); err == nil {
			if d := time.Until(at); d > 0 {
				return capDelay(d)
			}
			return 0
		}
	}
	return capDelay(time.Duration(1<<uint(attempt)) * time.Second)
}

func capDelay(d time.Duration) time.Duration {
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
