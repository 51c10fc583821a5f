package auth

import (
	"context"
	"sync"

	"github.com/ivanehh/datapipe"
)

// Cached reuses the first token its inner strategy hands out until Refresh is called
type Cached struct {
	mu    sync.Mutex
	inner datapipe.AuthStrategy
	token string
}

func NewCached(inner datapipe.AuthStrategy) *Cached {
	return &Cached{inner: inner}
}

func (c *Cached) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	return c.refresh(ctx)
}

// Refresh discards the held token and authenticates again
func (c *Cached) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh(ctx)
}

func (c *Cached) refresh(ctx context.Context) (string, error) {
	c.token = ""
	token, err := c.inner.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

func (c *Cached) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != "" || c.inner.IsAuthenticated()
}
