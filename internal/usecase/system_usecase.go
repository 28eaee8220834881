package usecase

import (
	"context"
	"log"
	"time"

	"skills-tracker/internal/database"
	"skills-tracker/internal/repository"

	"skills-tracker/internal/domain/skill"
)

type Stats struct {
	TotalSkills    int
	SkillsBySource map[string]int
	LastUpdated    time.Time
}

type Health struct {
	Status   string
	Database string
}

type SystemUsecase interface {
	Stats(ctx context.Context) (Stats, error)
	Health(ctx context.Context) Health
	RecentRuns(ctx context.Context, limit int) ([]skill.ScrapeRun, error)
}

type System struct {
	skills repository.SkillRepository
	runs   repository.ScrapeRunRepository
	db     database.DB
	cache  Cache
	logger *log.Logger
	now    func() time.Time
}

func NewSystemUsecase(skills repository.SkillRepository, runs repository.ScrapeRunRepository, db database.DB, cache Cache, logger *log.Logger) *System {
	if logger == nil {
		logger = log.Default()
	}
	return &System{skills: skills, runs: runs, db: db, cache: cache, logger: logger, now: time.Now}
}

func (u *System) Stats(ctx context.Context) (Stats, error) {
	const cacheKey = "skills:stats"
	if u.cache != nil {
		var cached Stats
		if ok, err := u.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	raw, err := u.skills.Stats(ctx)
	if err != nil {
		u.logger.Printf("stats failed | error=%v", err)
		return Stats{}, ErrInternal
	}

	out := Stats{
		TotalSkills:    raw.TotalSkills,
		SkillsBySource: raw.SkillsBySource,
	}
	if raw.LastUpdated != nil {
		out.LastUpdated = *raw.LastUpdated
	} else {
		out.LastUpdated = u.now().UTC()
	}

	if u.cache != nil {
		_ = u.cache.SetJSON(ctx, cacheKey, out, 0)
	}
	return out, nil
}

func (u *System) Health(ctx context.Context) Health {
	if u.db == nil {
		return Health{Status: "unhealthy", Database: "not configured"}
	}
	if err := u.db.Ping(ctx); err != nil {
		return Health{Status: "unhealthy", Database: "error: " + err.Error()}
	}
	return Health{Status: "healthy", Database: "connected"}
}

func (u *System) RecentRuns(ctx context.Context, limit int) ([]skill.ScrapeRun, error) {
	if limit == 0 {
		limit = 20
	}
	if limit < 1 || limit > 100 {
		return nil, ErrInvalidInput
	}

	runs, err := u.runs.ListRecent(ctx, limit)
	if err != nil {
		u.logger.Printf("list scrape runs failed | error=%v", err)
		return nil, ErrInternal
	}
	return runs, nil
}
