package routes

import (
	"log"

	"skills-tracker/internal/config"
	"skills-tracker/internal/database"
	"skills-tracker/internal/delivery/http/handler"
	"skills-tracker/internal/repository"
	"skills-tracker/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

// Registry wires repositories, usecases and handlers onto the Fiber app.
type Registry struct {
	cfg     config.Config
	db      database.DB
	cache   usecase.Cache
	trigger usecase.Trigger
	logger  *log.Logger
}

func NewRegistry(cfg config.Config, db database.DB, cache usecase.Cache, trigger usecase.Trigger, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{cfg: cfg, db: db, cache: cache, trigger: trigger, logger: logger}
}

func (r *Registry) Register(app *fiber.App) {
	if r == nil || app == nil {
		return
	}

	skillRepo := repository.NewPostgresSkillRepository(r.db)
	runRepo := repository.NewPostgresScrapeRunRepository(r.db)

	systemUC := usecase.NewSystemUsecase(skillRepo, runRepo, r.db, r.cache, r.logger)
	systemHandler := handler.NewSystemHandler(systemUC)

	app.Get("/health", systemHandler.Health)

	api := app.Group("/api")
	registerV1(api.Group("/v1"), r, skillRepo, systemHandler)
}
