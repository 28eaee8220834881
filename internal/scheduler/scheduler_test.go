package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"skills-tracker/internal/domain/skill"
	"skills-tracker/internal/scraper"
)

type stubScraper struct {
	source skill.Source
	items  []scraper.Item
	err    error

	// block, when set, stalls Scrape until the channel closes.
	block chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (s *stubScraper) Source() skill.Source { return s.source }

func (s *stubScraper) Scrape(ctx context.Context) ([]scraper.Item, error) {
	s.calls.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		max := s.maxInFlight.Load()
		if n <= max || s.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type stubEngine struct {
	mu      sync.Mutex
	applied [][]scraper.Item
	fail    bool
}

func (e *stubEngine) Apply(ctx context.Context, source skill.Source, items []scraper.Item) (skill.RunOutcome, error) {
	e.mu.Lock()
	e.applied = append(e.applied, items)
	e.mu.Unlock()
	if e.fail {
		err := fmt.Errorf("storage down")
		return skill.RunOutcome{Source: source, Status: skill.RunStatusError, Message: err.Error()}, err
	}
	return skill.RunOutcome{Source: source, Status: skill.RunStatusSuccess, ItemsScraped: len(items)}, nil
}

type stubRunRepo struct {
	mu   sync.Mutex
	runs []skill.ScrapeRun
}

func (r *stubRunRepo) Insert(ctx context.Context, run skill.ScrapeRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *stubRunRepo) ListRecent(ctx context.Context, limit int) ([]skill.ScrapeRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]skill.ScrapeRun(nil), r.runs...), nil
}

func items(n int) []scraper.Item {
	out := make([]scraper.Item, n)
	for i := range out {
		out[i] = scraper.Item{
			Name: fmt.Sprintf("pkg-%d", i),
			URL:  fmt.Sprintf("https://example.org/pkg-%d", i),
		}
	}
	return out
}

func TestScheduler_TriggerNow_Success(t *testing.T) {
	engine := &stubEngine{}
	runs := &stubRunRepo{}
	s := New(engine, runs, nil)
	s.Register(&stubScraper{source: skill.SourceNPM, items: items(3)}, time.Hour)

	outcome, err := s.TriggerNow(context.Background(), skill.SourceNPM)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if outcome.Failed() || outcome.ItemsScraped != 3 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	runs.mu.Lock()
	defer runs.mu.Unlock()
	if len(runs.runs) != 1 {
		t.Fatalf("expected exactly 1 run record, got %d", len(runs.runs))
	}
	run := runs.runs[0]
	if run.Source != skill.SourceNPM || run.Status != skill.RunStatusSuccess || run.ItemsScraped != 3 {
		t.Fatalf("unexpected run record: %+v", run)
	}
	if run.ErrorMessage != nil {
		t.Fatalf("success run must not carry an error message")
	}
	if run.CompletedAt.Before(run.StartedAt) {
		t.Fatalf("completed_at before started_at")
	}
}

func TestScheduler_TriggerNow_ScrapeFailureRecordsErrorRun(t *testing.T) {
	engine := &stubEngine{}
	runs := &stubRunRepo{}
	s := New(engine, runs, nil)
	s.Register(&stubScraper{source: skill.SourceGitHub, err: errors.New("upstream 503")}, time.Hour)

	outcome, err := s.TriggerNow(context.Background(), skill.SourceGitHub)
	if err != nil {
		t.Fatalf("trigger itself must not error on a failed run: %v", err)
	}
	if !outcome.Failed() {
		t.Fatalf("expected error outcome, got %+v", outcome)
	}

	engine.mu.Lock()
	applied := len(engine.applied)
	engine.mu.Unlock()
	if applied != 0 {
		t.Fatalf("a failed scrape must never reach the ingest engine")
	}

	runs.mu.Lock()
	defer runs.mu.Unlock()
	if len(runs.runs) != 1 {
		t.Fatalf("expected exactly 1 run record, got %d", len(runs.runs))
	}
	run := runs.runs[0]
	if run.Status != skill.RunStatusError || run.ItemsScraped != 0 {
		t.Fatalf("unexpected run record: %+v", run)
	}
	if run.ErrorMessage == nil || *run.ErrorMessage == "" {
		t.Fatalf("error run must carry the failure message")
	}
}

func TestScheduler_TriggerNow_IngestFailureRecordsErrorRun(t *testing.T) {
	engine := &stubEngine{fail: true}
	runs := &stubRunRepo{}
	s := New(engine, runs, nil)
	s.Register(&stubScraper{source: skill.SourcePyPI, items: items(5)}, time.Hour)

	outcome, err := s.TriggerNow(context.Background(), skill.SourcePyPI)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !outcome.Failed() {
		t.Fatalf("expected error outcome, got %+v", outcome)
	}

	runs.mu.Lock()
	defer runs.mu.Unlock()
	if len(runs.runs) != 1 {
		t.Fatalf("expected exactly 1 run record, got %d", len(runs.runs))
	}
	run := runs.runs[0]
	if run.Status != skill.RunStatusError || run.ErrorMessage == nil {
		t.Fatalf("unexpected run record: %+v", run)
	}
}

func TestScheduler_TriggerNow_UnknownSource(t *testing.T) {
	s := New(&stubEngine{}, &stubRunRepo{}, nil)
	s.Register(&stubScraper{source: skill.SourceNPM}, time.Hour)

	_, err := s.TriggerNow(context.Background(), skill.SourcePyPI)
	if !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestScheduler_SameSourceRunsSerialized(t *testing.T) {
	sc := &stubScraper{source: skill.SourceNPM, items: items(1)}
	s := New(&stubEngine{}, &stubRunRepo{}, nil)
	s.Register(sc, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.TriggerNow(context.Background(), skill.SourceNPM); err != nil {
				t.Errorf("trigger failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := sc.maxInFlight.Load(); got != 1 {
		t.Fatalf("same-source runs overlapped: max in flight %d", got)
	}
	if got := sc.calls.Load(); got != 4 {
		t.Fatalf("every trigger must still run, got %d", got)
	}
}

func TestScheduler_DifferentSourcesRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	npm := &stubScraper{source: skill.SourceNPM, items: items(1), block: release}
	gh := &stubScraper{source: skill.SourceGitHub, items: items(1), block: release}
	s := New(&stubEngine{}, &stubRunRepo{}, nil)
	s.Register(npm, time.Hour)
	s.Register(gh, time.Hour)

	var wg sync.WaitGroup
	for _, src := range []skill.Source{skill.SourceNPM, skill.SourceGitHub} {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.TriggerNow(context.Background(), src)
		}()
	}

	// Both must be in flight at once before either is released.
	deadline := time.After(2 * time.Second)
	for npm.inFlight.Load() != 1 || gh.inFlight.Load() != 1 {
		select {
		case <-deadline:
			t.Fatalf("different sources did not run concurrently")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(release)
	wg.Wait()
}

func TestScheduler_StopDrainsInFlightRun(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	sc := &blockingScraper{source: skill.SourceNPM, started: started, release: release}
	runs := &stubRunRepo{}
	s := New(&stubEngine{}, runs, nil)
	s.Register(sc, 20*time.Millisecond)

	s.Start()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduled run never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatalf("Stop returned while a run was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return after the run finished")
	}

	runs.mu.Lock()
	defer runs.mu.Unlock()
	if len(runs.runs) == 0 {
		t.Fatalf("drained run must still write its record")
	}
}

func TestScheduler_OnSuccessHook(t *testing.T) {
	var good, bad atomic.Int32
	s := New(&stubEngine{}, &stubRunRepo{}, nil)
	s.Register(&stubScraper{source: skill.SourceNPM, items: items(2)}, time.Hour)
	s.Register(&stubScraper{source: skill.SourceGitHub, err: errors.New("down")}, time.Hour)
	s.SetOnSuccess(func(ctx context.Context, source skill.Source) {
		if source == skill.SourceNPM {
			good.Add(1)
		} else {
			bad.Add(1)
		}
	})

	if _, err := s.TriggerNow(context.Background(), skill.SourceNPM); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := s.TriggerNow(context.Background(), skill.SourceGitHub); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if good.Load() != 1 {
		t.Fatalf("hook must fire once per successful run, got %d", good.Load())
	}
	if bad.Load() != 0 {
		t.Fatalf("hook must not fire for failed runs")
	}
}

// blockingScraper signals when a run starts and holds it until released.
type blockingScraper struct {
	source  skill.Source
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingScraper) Source() skill.Source { return s.source }

func (s *blockingScraper) Scrape(ctx context.Context) ([]scraper.Item, error) {
	s.once.Do(func() { s.started <- struct{}{} })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []scraper.Item{{Name: "pkg", URL: "https://example.org/pkg"}}, nil
}
