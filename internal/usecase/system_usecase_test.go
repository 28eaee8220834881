package usecase

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"skills-tracker/internal/database"
	"skills-tracker/internal/domain/skill"
	"skills-tracker/internal/repository"

	"github.com/google/uuid"
)

type mockRunRepo struct {
	runs []skill.ScrapeRun
	err  error

	lastLimit int
}

func (m *mockRunRepo) Insert(ctx context.Context, run skill.ScrapeRun) error { return nil }

func (m *mockRunRepo) ListRecent(ctx context.Context, limit int) ([]skill.ScrapeRun, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.runs, nil
}

type pingDB struct {
	err error
}

func (d pingDB) Ping(ctx context.Context) error { return d.err }
func (d pingDB) Close() error                   { return nil }
func (d pingDB) SQLDB() *sql.DB                 { return nil }
func (d pingDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, errors.New("not implemented")
}
func (d pingDB) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return nil, errors.New("not implemented")
}
func (d pingDB) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return nil
}
func (d pingDB) Begin(ctx context.Context) (database.Tx, error) {
	return nil, errors.New("not implemented")
}

func TestSystemUsecase_Stats(t *testing.T) {
	updated := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockSkillRepo{stats: repository.SourceStats{
		TotalSkills:    12,
		SkillsBySource: map[string]int{"github": 7, "npm": 5},
		LastUpdated:    &updated,
	}}
	uc := NewSystemUsecase(repo, &mockRunRepo{}, pingDB{}, nil, nil)

	out, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalSkills != 12 || out.SkillsBySource["github"] != 7 {
		t.Fatalf("unexpected stats: %+v", out)
	}
	if !out.LastUpdated.Equal(updated) {
		t.Fatalf("unexpected last updated: %v", out.LastUpdated)
	}
}

func TestSystemUsecase_StatsCached(t *testing.T) {
	repo := &mockSkillRepo{stats: repository.SourceStats{TotalSkills: 3}}
	cache := newMemCache()
	uc := NewSystemUsecase(repo, &mockRunRepo{}, pingDB{}, cache, nil)

	if _, err := uc.Stats(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := uc.Stats(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cache.sets != 1 || cache.hits != 1 {
		t.Fatalf("expected 1 set and 1 hit, got %d/%d", cache.sets, cache.hits)
	}
	if _, ok := cache.data["skills:stats"]; !ok {
		t.Fatalf("stats cached under unexpected key")
	}
}

func TestSystemUsecase_Health(t *testing.T) {
	uc := NewSystemUsecase(&mockSkillRepo{}, &mockRunRepo{}, pingDB{}, nil, nil)
	if h := uc.Health(context.Background()); h.Status != "healthy" {
		t.Fatalf("expected healthy, got %+v", h)
	}

	down := NewSystemUsecase(&mockSkillRepo{}, &mockRunRepo{}, pingDB{err: errors.New("refused")}, nil, nil)
	if h := down.Health(context.Background()); h.Status != "unhealthy" {
		t.Fatalf("expected unhealthy, got %+v", h)
	}
}

func TestSystemUsecase_RecentRuns(t *testing.T) {
	msg := "timeout"
	repo := &mockRunRepo{runs: []skill.ScrapeRun{
		{ID: uuid.New(), Source: skill.SourceGitHub, Status: skill.RunStatusSuccess, ItemsScraped: 90},
		{ID: uuid.New(), Source: skill.SourceNPM, Status: skill.RunStatusError, ErrorMessage: &msg},
	}}
	uc := NewSystemUsecase(&mockSkillRepo{}, repo, pingDB{}, nil, nil)

	runs, err := uc.RecentRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.lastLimit != 20 {
		t.Fatalf("default limit must be 20, got %d", repo.lastLimit)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	if _, err := uc.RecentRuns(context.Background(), 101); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
