package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionReaper prunes expired admin sessions in the background
type SessionReaper struct {
	store    SessionStore
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSessionReaper creates a new session reaper
func NewSessionReaper(store SessionStore, interval time.Duration) *SessionReaper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SessionReaper{
		store:    store,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the reaper
func (p *SessionReaper) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop()
	}()
}

// Stop stops the reaper and waits for the loop to exit
func (p *SessionReaper) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

func (p *SessionReaper) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-p.stopCh:
			return
		}
	}
}

func (p *SessionReaper) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := p.store.PruneExpired(ctx, p.now())
	if err != nil {
		slog.Error("pruning admin sessions", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("pruned expired admin sessions", "count", n)
	}
}
