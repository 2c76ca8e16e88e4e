package gmap

import (
	"context"
	"log/slog"
	"sync"

	"github.com/remeh/sizedwaitgroup"
)

// Prefetcher is notified of levels the player is likely to enter next.
// Implementations must not block the caller.
type Prefetcher interface {
	Prefetch(levels []string)
}

// Fetcher requests one level from the file layer.
type Fetcher interface {
	Fetch(ctx context.Context, level string) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, level string) error

func (f FetcherFunc) Fetch(ctx context.Context, level string) error {
	return f(ctx, level)
}

// Dispatcher is a Prefetcher that fetches each level at most once with a
// bounded number of concurrent fetches. A failed fetch may be retried by a
// later Prefetch.
type Dispatcher struct {
	ctx     context.Context
	fetcher Fetcher
	logger  *slog.Logger

	swg     sizedwaitgroup.SizedWaitGroup
	pending sync.WaitGroup

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDispatcher creates a dispatcher. Fetches stop being started once ctx is done.
func NewDispatcher(ctx context.Context, fetcher Fetcher, workers int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ctx:     ctx,
		fetcher: fetcher,
		logger:  logger.With("component", "prefetch"),
		swg:     sizedwaitgroup.New(workers),
		seen:    make(map[string]struct{}),
	}
}

// Prefetch schedules the levels not requested before and returns immediately.
func (d *Dispatcher) Prefetch(levels []string) {
	d.mu.Lock()
	var fresh []string
	for _, l := range levels {
		k := key(l)
		if _, ok := d.seen[k]; ok {
			continue
		}
		d.seen[k] = struct{}{}
		fresh = append(fresh, l)
	}
	d.mu.Unlock()

	if len(fresh) == 0 {
		return
	}

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		for i, level := range fresh {
			// levels already handed to a worker stay seen
			if d.ctx.Err() != nil {
				d.forget(fresh[i:]...)
				return
			}
			if err := d.swg.AddWithContext(d.ctx); err != nil {
				d.forget(fresh[i:]...)
				return
			}
			go func(level string) {
				defer d.swg.Done()
				if err := d.fetcher.Fetch(d.ctx, level); err != nil {
					d.logger.Warn("prefetch failed", "level", level, "err", err)
					d.forget(level)
					return
				}
				d.logger.Debug("prefetched", "level", level)
			}(level)
		}
	}()
}

// Wait blocks until every scheduled fetch has finished.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
	d.swg.Wait()
}

func (d *Dispatcher) forget(levels ...string) {
	d.mu.Lock()
	for _, l := range levels {
		delete(d.seen, key(l))
	}
	d.mu.Unlock()
}
