package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"skills-tracker/internal/domain/skill"
	"skills-tracker/internal/repository"
	"skills-tracker/internal/scraper"

	"github.com/google/uuid"
)

var ErrUnknownSource = errors.New("unknown source")

// Engine is the ingestion side the scheduler hands batches to.
type Engine interface {
	Apply(ctx context.Context, source skill.Source, items []scraper.Item) (skill.RunOutcome, error)
}

type registration struct {
	scraper  scraper.Scraper
	interval time.Duration
}

// Scheduler owns one periodic trigger per registered source plus the manual
// trigger path; both converge on runOnce. Runs for the same source are
// serialized with a per-source lock so two overlapping triggers cannot both
// create the same skill; runs for different sources proceed concurrently.
type Scheduler struct {
	engine Engine
	runs   repository.ScrapeRunRepository
	logger *log.Logger

	mu      sync.Mutex
	sources map[skill.Source]*registration
	locks   map[skill.Source]*sync.Mutex
	started bool
	stop    chan struct{}
	wg      sync.WaitGroup

	// onSuccess runs after each successful ingest (cache invalidation).
	onSuccess func(ctx context.Context, source skill.Source)

	runTimeout time.Duration
	now        func() time.Time
}

func New(engine Engine, runs repository.ScrapeRunRepository, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		engine:     engine,
		runs:       runs,
		logger:     logger,
		sources:    map[skill.Source]*registration{},
		locks:      map[skill.Source]*sync.Mutex{},
		stop:       make(chan struct{}),
		runTimeout: 5 * time.Minute,
		now:        time.Now,
	}
}

// Register adds a source before Start. Registering the same source twice
// replaces its scraper and interval.
func (s *Scheduler) Register(sc scraper.Scraper, interval time.Duration) {
	if s == nil || sc == nil || interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src := sc.Source()
	s.sources[src] = &registration{scraper: sc, interval: interval}
	if _, ok := s.locks[src]; !ok {
		s.locks[src] = &sync.Mutex{}
	}
}

func (s *Scheduler) SetOnSuccess(fn func(ctx context.Context, source skill.Source)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onSuccess = fn
	s.mu.Unlock()
}

// Start installs one timer per registered source. Each fires on its own
// cadence; intervals need not line up across sources.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	regs := make(map[skill.Source]*registration, len(s.sources))
	for src, reg := range s.sources {
		regs[src] = reg
	}
	s.mu.Unlock()

	for src, reg := range regs {
		src, reg := src, reg
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(reg.interval)
			defer ticker.Stop()
			for {
				select {
				case <-s.stop:
					return
				case <-ticker.C:
					outcome := s.runOnce(context.Background(), src)
					if outcome.Failed() {
						s.logger.Printf("scheduled scrape failed | source=%s error=%s", src, outcome.Message)
					} else {
						s.logger.Printf("scheduled scrape completed | source=%s items=%d", src, outcome.ItemsScraped)
					}
				}
			}
		}()
	}
}

// Stop cancels future firings and waits for in-flight runs to finish; their
// run records are still written.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
}

// TriggerNow runs one ingestion for source on the same path as the periodic
// timers and returns the outcome synchronously. An unregistered source is
// rejected before any run starts.
func (s *Scheduler) TriggerNow(ctx context.Context, source skill.Source) (skill.RunOutcome, error) {
	if s == nil {
		return skill.RunOutcome{}, fmt.Errorf("nil scheduler")
	}
	s.mu.Lock()
	_, ok := s.sources[source]
	s.mu.Unlock()
	if !ok {
		return skill.RunOutcome{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	return s.runOnce(ctx, source), nil
}

func (s *Scheduler) runOnce(ctx context.Context, source skill.Source) skill.RunOutcome {
	s.mu.Lock()
	reg := s.sources[source]
	lock := s.locks[source]
	onSuccess := s.onSuccess
	s.mu.Unlock()
	if reg == nil || lock == nil {
		return skill.RunOutcome{Source: source, Status: skill.RunStatusError, Message: "source not registered"}
	}

	// Serializes overlapping runs for this source; a periodic tick and a
	// manual trigger must not upsert the same names concurrently.
	lock.Lock()
	defer lock.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	startedAt := s.now().UTC()

	var outcome skill.RunOutcome
	items, err := reg.scraper.Scrape(runCtx)
	if err != nil {
		outcome = skill.RunOutcome{
			Source:  source,
			Status:  skill.RunStatusError,
			Message: err.Error(),
		}
	} else {
		outcome, _ = s.engine.Apply(runCtx, source, items)
	}

	s.record(source, outcome, startedAt)

	if !outcome.Failed() && onSuccess != nil {
		onSuccess(runCtx, source)
	}

	return outcome
}

// record appends exactly one run row per attempt. It uses a fresh context so
// a run that exhausted its timeout still gets its audit row.
func (s *Scheduler) record(source skill.Source, outcome skill.RunOutcome, startedAt time.Time) {
	if s.runs == nil {
		return
	}

	run := skill.ScrapeRun{
		ID:           uuid.New(),
		Source:       source,
		ItemsScraped: outcome.ItemsScraped,
		Status:       outcome.Status,
		StartedAt:    startedAt,
		CompletedAt:  s.now().UTC(),
	}
	if outcome.Failed() {
		msg := outcome.Message
		run.ErrorMessage = &msg
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.runs.Insert(ctx, run); err != nil {
		s.logger.Printf("scrape run not recorded | source=%s status=%s error=%v", source, outcome.Status, err)
	}
}
