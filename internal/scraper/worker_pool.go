package scraper

import (
	"context"
	"sync"
	"time"
)

// Task is one unit of secondary-lookup work, e.g. a per-package downloads
// fetch fanned out after a search pass.
type Task func(ctx context.Context) error

type Result struct {
	Err error
}

// WorkerPool fans Tasks out over a fixed number of goroutines, optionally
// pacing task starts at rps per second across all workers.
type WorkerPool struct {
	workers int
	tasks   chan Task
	wg      sync.WaitGroup
	ticker  *time.Ticker
}

func NewWorkerPool(workers, buffer, rps int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	p := &WorkerPool{
		workers: workers,
		tasks:   make(chan Task, buffer),
	}
	if rps > 0 {
		p.ticker = time.NewTicker(time.Second / time.Duration(rps))
	}
	return p
}

func (p *WorkerPool) Submit(t Task) {
	if p == nil || t == nil {
		return
	}
	p.tasks <- t
}

// Close signals that no further tasks will be submitted. Run's result
// channel closes once the queued tasks drain.
func (p *WorkerPool) Close() {
	if p == nil {
		return
	}
	close(p.tasks)
}

func (p *WorkerPool) Run(ctx context.Context) <-chan Result {
	buf := p.workers * 1024
	if buf < 1 {
		buf = 1
	}
	out := make(chan Result, buf)
	if p == nil {
		close(out)
		return out
	}

	var rate <-chan time.Time
	if p.ticker != nil {
		rate = p.ticker.C
	}

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-p.tasks:
					if !ok {
						return
					}
					if t == nil {
						continue
					}
					if rate != nil {
						select {
						case <-ctx.Done():
							return
						case <-rate:
						}
					}
					err := t(ctx)
					select {
					case <-ctx.Done():
						return
					case out <- Result{Err: err}:
					}
				}
			}
		}()
	}

	go func() {
		p.wg.Wait()
		if p.ticker != nil {
			p.ticker.Stop()
		}
		close(out)
	}()

	return out
}
