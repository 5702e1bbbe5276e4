package moderation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type pruneStore interface {
	PruneActivity(ctx context.Context, retention time.Duration) (int64, error)
}

// Pruner periodically drops activity events that fell out of every detection
// window. It runs independently of recording and only ever deletes events
// strictly older than the retention horizon.
type Pruner struct {
	store     pruneStore
	interval  time.Duration
	retention time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPruner(store pruneStore, interval, retention time.Duration) *Pruner {
	return &Pruner{
		store:     store,
		interval:  interval,
		retention: retention,
	}
}

func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.prune(runCtx)
			}
		}
	}()
	return nil
}

func (p *Pruner) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Pruner) prune(ctx context.Context) {
	entry := log.WithField("object", "Pruner")
	deleted, err := p.store.PruneActivity(ctx, p.retention)
	if err != nil {
		entry.WithError(err).Error("failed to prune activity events")
		return
	}
	if deleted > 0 {
		entry.WithField("deleted", deleted).Debug("pruned old activity events")
	}
}
