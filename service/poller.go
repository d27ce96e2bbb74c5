package service

import (
	"context"
	"log"
	"net/http"
	"time"

	"boardlink/models"
)

const (
	DefaultTickInterval    = 20 * time.Millisecond
	DefaultRefreshInterval = 5 * time.Minute
	refreshCheckInterval   = time.Second
)

type PollerOptions struct {
	TickInterval    time.Duration
	RefreshInterval time.Duration
	// Credentials for the board directory. Empty disables directory polling.
	Credentials models.Credentials
}

// Poller drives a Registry. Boards are ticked on a short interval; the
// directory is refreshed from a separate goroutine.
type Poller struct {
	registry *Registry
	opts     PollerOptions
}

func NewPoller(registry *Registry, opts PollerOptions) *Poller {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	return &Poller{registry: registry, opts: opts}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if p.opts.Credentials.Empty() {
		log.Println("Directory polling disabled: no account configured")
	} else {
		go p.refreshLoop(ctx)
	}

	log.Printf("Poller: ticking %d boards every %v", p.registry.Len(), p.opts.TickInterval)
	ticker := time.NewTicker(p.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Poller: shutting down")
			return
		case <-ticker.C:
			if n := p.registry.TickBoards(); n > 0 {
				log.Printf("⏱️ %d board connection(s) timed out this tick", n)
			}
		}
	}
}

func (p *Poller) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(refreshCheckInterval)
	defer ticker.Stop()

	for {
		code, err := p.registry.RefreshIfDue(ctx, p.opts.Credentials, p.opts.RefreshInterval)
		switch {
		case err != nil:
			log.Printf("⚠️ Directory refresh failed [%d]: %v", code, err)
		case code == http.StatusOK:
			log.Printf("✅ Directory refreshed, %d boards known", p.registry.Len())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
