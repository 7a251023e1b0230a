package provider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps an LLMClient with a client-side token bucket.
type RateLimitedClient struct {
	client  LLMClient
	limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing requestsPerMinute with the given
// burst. A non-positive rate returns nil (unlimited).
func NewLimiter(requestsPerMinute, burst int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)
}

// WithLimiter wraps client so every Complete waits on limiter first.
// A nil limiter returns client unchanged.
func WithLimiter(client LLMClient, limiter *rate.Limiter) LLMClient {
	if limiter == nil {
		return client
	}
	return &RateLimitedClient{client: client, limiter: limiter}
}

func (c *RateLimitedClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return CompletionResponse{}, fmt.Errorf("rate limit wait: %w", err)
	}
	return c.client.Complete(ctx, req)
}
