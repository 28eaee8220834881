package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"skills-tracker/internal/domain/skill"
	"skills-tracker/internal/repository"

	"github.com/google/uuid"
)

type MetricsView struct {
	Stars          *int64
	Forks          *int64
	DownloadsDay   *int64
	DownloadsWeek  *int64
	DownloadsMonth *int64
	Likes          *int64
	LastActivity   *time.Time
	RecordedAt     time.Time
}

type SkillItem struct {
	ID          uuid.UUID
	Name        string
	Source      string
	Description string
	URL         string
	Language    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Metrics     *MetricsView
}

type SkillList struct {
	Skills    []SkillItem
	Total     int
	SortBy    string
	UpdatedAt time.Time
}

type SkillHistory struct {
	SkillID   uuid.UUID
	SkillName string
	Days      int
	History   []MetricsView
}

type SkillListParams struct {
	Sort   string
	Source string
	Limit  int
}

type SkillUsecase interface {
	ListSkills(ctx context.Context, params SkillListParams) (SkillList, error)
	GetSkill(ctx context.Context, id uuid.UUID) (SkillItem, error)
	History(ctx context.Context, id uuid.UUID, days int) (SkillHistory, error)
}

type Skills struct {
	repo   repository.SkillRepository
	cache  Cache
	logger *log.Logger
	now    func() time.Time
}

func NewSkillUsecase(repo repository.SkillRepository, cache Cache, logger *log.Logger) *Skills {
	if logger == nil {
		logger = log.Default()
	}
	return &Skills{repo: repo, cache: cache, logger: logger, now: time.Now}
}

func (u *Skills) ListSkills(ctx context.Context, params SkillListParams) (SkillList, error) {
	sort := params.Sort
	if sort == "" {
		sort = repository.SortLatest
	}
	switch sort {
	case repository.SortLatest, repository.SortHot, repository.SortUsed:
	default:
		return SkillList{}, ErrInvalidInput
	}

	limit := params.Limit
	if limit == 0 {
		limit = 50
	}
	if limit < 1 || limit > 100 {
		return SkillList{}, ErrInvalidInput
	}

	filter := repository.SkillListFilter{Sort: sort, Limit: limit}
	sourceKey := "all"
	if params.Source != "" && params.Source != "all" {
		src, err := skill.ParseSource(params.Source)
		if err != nil {
			return SkillList{}, ErrInvalidInput
		}
		filter.Source = &src
		sourceKey = string(src)
	}

	cacheKey := fmt.Sprintf("skills:list:%s:%s:%d", sort, sourceKey, limit)
	if u.cache != nil {
		var cached SkillList
		if ok, err := u.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	items, total, err := u.repo.ListSkills(ctx, filter)
	if err != nil {
		u.logger.Printf("list skills failed | sort=%s source=%s error=%v", sort, sourceKey, err)
		return SkillList{}, ErrInternal
	}

	out := SkillList{
		Skills:    make([]SkillItem, 0, len(items)),
		Total:     total,
		SortBy:    sort,
		UpdatedAt: u.now().UTC(),
	}
	for _, it := range items {
		out.Skills = append(out.Skills, toSkillItem(it))
	}

	if u.cache != nil {
		_ = u.cache.SetJSON(ctx, cacheKey, out, 0)
	}
	return out, nil
}

func (u *Skills) GetSkill(ctx context.Context, id uuid.UUID) (SkillItem, error) {
	item, err := u.repo.GetSkill(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SkillItem{}, ErrNotFound
		}
		u.logger.Printf("get skill failed | id=%s error=%v", id, err)
		return SkillItem{}, ErrInternal
	}
	return toSkillItem(item), nil
}

func (u *Skills) History(ctx context.Context, id uuid.UUID, days int) (SkillHistory, error) {
	if days == 0 {
		days = 30
	}
	if days < 1 || days > 90 {
		return SkillHistory{}, ErrInvalidInput
	}

	item, err := u.repo.GetSkill(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SkillHistory{}, ErrNotFound
		}
		u.logger.Printf("get skill failed | id=%s error=%v", id, err)
		return SkillHistory{}, ErrInternal
	}

	since := u.now().UTC().AddDate(0, 0, -days)
	metrics, err := u.repo.History(ctx, id, since)
	if err != nil {
		u.logger.Printf("skill history failed | id=%s error=%v", id, err)
		return SkillHistory{}, ErrInternal
	}

	out := SkillHistory{
		SkillID:   id,
		SkillName: item.Skill.Name,
		Days:      days,
		History:   make([]MetricsView, 0, len(metrics)),
	}
	for i := range metrics {
		out.History = append(out.History, toMetricsView(&metrics[i]))
	}
	return out, nil
}

func toSkillItem(it repository.SkillWithMetrics) SkillItem {
	out := SkillItem{
		ID:          it.Skill.ID,
		Name:        it.Skill.Name,
		Source:      string(it.Skill.Source),
		Description: it.Skill.Description,
		URL:         it.Skill.URL,
		Language:    it.Skill.Language,
		CreatedAt:   it.Skill.CreatedAt,
		UpdatedAt:   it.Skill.UpdatedAt,
	}
	if it.Metrics != nil {
		v := toMetricsView(it.Metrics)
		out.Metrics = &v
	}
	return out
}

func toMetricsView(m *skill.Metrics) MetricsView {
	return MetricsView{
		Stars:          m.Stars,
		Forks:          m.Forks,
		DownloadsDay:   m.DownloadsDay,
		DownloadsWeek:  m.DownloadsWeek,
		DownloadsMonth: m.DownloadsMonth,
		Likes:          m.Likes,
		LastActivity:   m.LastActivity,
		RecordedAt:     m.RecordedAt,
	}
}
