package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Keepalive pings the public health endpoint on an interval so free-tier
// hosting never idles the process out. It gives up on nothing: a failed
// ping is logged and the next tick tries again.
type Keepalive struct {
	log      *slog.Logger
	client   *http.Client
	url      string
	interval time.Duration
}

func NewKeepalive(log *slog.Logger, externalURL string, interval time.Duration) *Keepalive {
	return &Keepalive{
		log:      log,
		client:   &http.Client{Timeout: 10 * time.Second},
		url:      externalURL + "/health",
		interval: interval,
	}
}

func (k *Keepalive) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := k.ping(ctx); err != nil {
				k.log.Warn("keepalive ping failed", "url", k.url, "error", err)
			}
		}
	}
}

func (k *Keepalive) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return err
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
