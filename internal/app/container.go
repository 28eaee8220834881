package app

import (
	"context"
	"log"
	"time"

	"skills-tracker/internal/config"
	"skills-tracker/internal/database"
	dbpostgres "skills-tracker/internal/database/postgres"
	"skills-tracker/internal/domain/skill"
	"skills-tracker/internal/infrastructure/cache"
	"skills-tracker/internal/ingest"
	"skills-tracker/internal/repository"
	"skills-tracker/internal/scheduler"
	"skills-tracker/internal/scraper"
)

// Container owns the long-lived dependencies shared by the HTTP layer and
// the background scheduler.
type Container struct {
	Config    config.Config
	DB        database.DB
	Cache     *cache.Redis
	Scheduler *scheduler.Scheduler
	Logger    *log.Logger
}

func NewContainer(cfg config.Config, logger *log.Logger) (*Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	redis := cache.NewRedis(logger)

	engine := ingest.NewEngine(db, logger)
	runs := repository.NewPostgresScrapeRunRepository(db)

	sched := scheduler.New(engine, runs, logger)
	sched.Register(scraper.NewGitHubScraper(cfg.Scrape.GitHub), cfg.Scrape.GitHub.Interval)
	sched.Register(scraper.NewNPMScraper(cfg.Scrape.NPM), cfg.Scrape.NPM.Interval)
	sched.Register(scraper.NewPyPIScraper(cfg.Scrape.PyPI, cfg.Scrape.PyPIHeadlessFallback), cfg.Scrape.PyPI.Interval)
	sched.Register(scraper.NewHuggingFaceScraper(cfg.Scrape.HuggingFace), cfg.Scrape.HuggingFace.Interval)
	sched.SetOnSuccess(func(ctx context.Context, _ skill.Source) {
		if err := redis.InvalidateSkills(ctx); err != nil {
			logger.Printf("cache invalidation after scrape failed: %v", err)
		}
	})

	return &Container{
		Config:    cfg,
		DB:        db,
		Cache:     redis,
		Scheduler: sched,
		Logger:    logger,
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Printf("redis close: %v", err)
		}
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
