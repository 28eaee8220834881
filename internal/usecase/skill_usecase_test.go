package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"skills-tracker/internal/domain/skill"
	"skills-tracker/internal/repository"

	"github.com/google/uuid"
)

type mockSkillRepo struct {
	items   []repository.SkillWithMetrics
	total   int
	byID    map[uuid.UUID]repository.SkillWithMetrics
	history []skill.Metrics
	stats   repository.SourceStats
	err     error

	lastFilter repository.SkillListFilter
	lastSince  time.Time
	listCalls  int
}

func (m *mockSkillRepo) ListSkills(ctx context.Context, filter repository.SkillListFilter) ([]repository.SkillWithMetrics, int, error) {
	m.listCalls++
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.items, m.total, nil
}

func (m *mockSkillRepo) GetSkill(ctx context.Context, id uuid.UUID) (repository.SkillWithMetrics, error) {
	if m.err != nil {
		return repository.SkillWithMetrics{}, m.err
	}
	it, ok := m.byID[id]
	if !ok {
		return repository.SkillWithMetrics{}, repository.ErrNotFound
	}
	return it, nil
}

func (m *mockSkillRepo) History(ctx context.Context, id uuid.UUID, since time.Time) ([]skill.Metrics, error) {
	m.lastSince = since
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func (m *mockSkillRepo) Stats(ctx context.Context) (repository.SourceStats, error) {
	if m.err != nil {
		return repository.SourceStats{}, m.err
	}
	return m.stats, nil
}

// memCache is an in-memory Cache for tests.
type memCache struct {
	data map[string][]byte
	sets int
	hits int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, out)
}

func (c *memCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.sets++
	c.data[key] = b
	return nil
}

func sampleSkill(name string, source skill.Source) repository.SkillWithMetrics {
	stars := int64(100)
	return repository.SkillWithMetrics{
		Skill: skill.Skill{
			ID:          uuid.New(),
			Name:        name,
			Source:      source,
			Description: "desc",
			URL:         "https://example.org/" + name,
		},
		Metrics: &skill.Metrics{Stars: &stars, RecordedAt: time.Now().UTC()},
	}
}

func TestSkillUsecase_ListSkills_Defaults(t *testing.T) {
	repo := &mockSkillRepo{items: []repository.SkillWithMetrics{sampleSkill("a", skill.SourceGitHub)}, total: 1}
	uc := NewSkillUsecase(repo, nil, nil)

	out, err := uc.ListSkills(context.Background(), SkillListParams{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.SortBy != repository.SortLatest {
		t.Fatalf("default sort must be latest, got %q", out.SortBy)
	}
	if repo.lastFilter.Limit != 50 {
		t.Fatalf("default limit must be 50, got %d", repo.lastFilter.Limit)
	}
	if repo.lastFilter.Source != nil {
		t.Fatalf("default source must be all")
	}
	if out.Total != 1 || len(out.Skills) != 1 {
		t.Fatalf("unexpected list: %+v", out)
	}
	if out.Skills[0].Metrics == nil || *out.Skills[0].Metrics.Stars != 100 {
		t.Fatalf("latest metrics not mapped")
	}
}

func TestSkillUsecase_ListSkills_InvalidInput(t *testing.T) {
	uc := NewSkillUsecase(&mockSkillRepo{}, nil, nil)

	cases := []SkillListParams{
		{Sort: "alphabetical"},
		{Limit: -1},
		{Limit: 101},
		{Source: "gitlab"},
	}
	for _, p := range cases {
		if _, err := uc.ListSkills(context.Background(), p); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("params %+v: expected ErrInvalidInput, got %v", p, err)
		}
	}
}

func TestSkillUsecase_ListSkills_SourceFilter(t *testing.T) {
	repo := &mockSkillRepo{}
	uc := NewSkillUsecase(repo, nil, nil)

	if _, err := uc.ListSkills(context.Background(), SkillListParams{Source: "npm", Sort: "hot", Limit: 10}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.lastFilter.Source == nil || *repo.lastFilter.Source != skill.SourceNPM {
		t.Fatalf("source filter not forwarded: %+v", repo.lastFilter)
	}
	if repo.lastFilter.Sort != repository.SortHot {
		t.Fatalf("sort not forwarded: %+v", repo.lastFilter)
	}
}

func TestSkillUsecase_ListSkills_CacheHitSkipsRepo(t *testing.T) {
	repo := &mockSkillRepo{items: []repository.SkillWithMetrics{sampleSkill("a", skill.SourceNPM)}, total: 1}
	cache := newMemCache()
	uc := NewSkillUsecase(repo, cache, nil)

	params := SkillListParams{Sort: "hot", Source: "npm", Limit: 10}
	first, err := uc.ListSkills(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := uc.ListSkills(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if repo.listCalls != 1 {
		t.Fatalf("second call must come from cache, repo hit %d times", repo.listCalls)
	}
	if cache.hits != 1 || cache.sets != 1 {
		t.Fatalf("expected 1 hit and 1 set, got %d/%d", cache.hits, cache.sets)
	}
	if len(second.Skills) != len(first.Skills) || second.Total != first.Total {
		t.Fatalf("cached result diverged")
	}
	if _, ok := cache.data["skills:list:hot:npm:10"]; !ok {
		t.Fatalf("unexpected cache key, have %v", keys(cache.data))
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSkillUsecase_GetSkill_NotFound(t *testing.T) {
	uc := NewSkillUsecase(&mockSkillRepo{byID: map[uuid.UUID]repository.SkillWithMetrics{}}, nil, nil)

	_, err := uc.GetSkill(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSkillUsecase_History(t *testing.T) {
	item := sampleSkill("requests", skill.SourcePyPI)
	dl := int64(700)
	repo := &mockSkillRepo{
		byID: map[uuid.UUID]repository.SkillWithMetrics{item.Skill.ID: item},
		history: []skill.Metrics{
			{SkillID: item.Skill.ID, DownloadsWeek: &dl, RecordedAt: time.Now().UTC()},
		},
	}
	uc := NewSkillUsecase(repo, nil, nil)

	out, err := uc.History(context.Background(), item.Skill.ID, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Days != 30 {
		t.Fatalf("default window must be 30 days, got %d", out.Days)
	}
	if out.SkillName != "requests" {
		t.Fatalf("unexpected skill name %q", out.SkillName)
	}
	if len(out.History) != 1 || out.History[0].DownloadsWeek == nil {
		t.Fatalf("history not mapped: %+v", out.History)
	}

	wantSince := time.Now().UTC().AddDate(0, 0, -30)
	if d := repo.lastSince.Sub(wantSince); d < -time.Minute || d > time.Minute {
		t.Fatalf("since window off: %v", repo.lastSince)
	}

	if _, err := uc.History(context.Background(), item.Skill.ID, 91); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for 91 days, got %v", err)
	}
	if _, err := uc.History(context.Background(), uuid.New(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown skill, got %v", err)
	}
}

func TestSkillUsecase_RepoErrorIsInternal(t *testing.T) {
	uc := NewSkillUsecase(&mockSkillRepo{err: errors.New("db down")}, nil, nil)

	if _, err := uc.ListSkills(context.Background(), SkillListParams{}); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if _, err := uc.GetSkill(context.Background(), uuid.New()); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}
