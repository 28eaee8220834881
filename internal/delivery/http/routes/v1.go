package routes

import (
	"skills-tracker/internal/delivery/http/handler"
	"skills-tracker/internal/delivery/http/middleware"
	"skills-tracker/internal/pkg/jwt"
	"skills-tracker/internal/repository"
	"skills-tracker/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

func registerV1(r fiber.Router, reg *Registry, skillRepo repository.SkillRepository, systemHandler *handler.SystemHandler) {
	if r == nil {
		return
	}

	skillUC := usecase.NewSkillUsecase(skillRepo, reg.cache, reg.logger)
	skillHandler := handler.NewSkillHandler(skillUC)
	skillHandler.RegisterRoutes(r)

	systemHandler.RegisterRoutes(r)

	scrapeUC := usecase.NewScrapeUsecase(reg.trigger, reg.logger)
	scrapeHandler := handler.NewScrapeHandler(scrapeUC)

	// The trigger route mutates state; it gets the admin guard when a
	// secret is configured.
	var jwtSvc jwt.Service
	if reg.cfg.JWT.Secret != "" {
		jwtSvc = jwt.NewHMACService(reg.cfg.JWT.Secret, reg.cfg.JWT.AccessExpiresIn)
	}
	authMw := middleware.NewAdminAuthMiddleware(jwtSvc)

	protected := r.Group("", authMw.Middleware())
	scrapeHandler.RegisterRoutes(protected)
}
