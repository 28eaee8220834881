package handler

import (
	"errors"
	"time"

	"skills-tracker/internal/pkg/response"
	"skills-tracker/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type SystemHandler struct {
	uc usecase.SystemUsecase
}

func NewSystemHandler(uc usecase.SystemUsecase) *SystemHandler {
	return &SystemHandler{uc: uc}
}

type statsResponse struct {
	TotalSkills    int            `json:"total_skills"`
	SkillsBySource map[string]int `json:"skills_by_source"`
	LastUpdated    time.Time      `json:"last_updated"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
}

type scrapeRunResponse struct {
	ID           uuid.UUID `json:"id"`
	Source       string    `json:"source"`
	ItemsScraped int       `json:"items_scraped"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

type scrapeRunListResponse struct {
	Scrapes []scrapeRunResponse `json:"scrapes"`
}

func (h *SystemHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/stats", h.Stats)
	r.Get("/scrapes", h.Scrapes)
}

func (h *SystemHandler) Stats(c fiber.Ctx) error {
	stats, err := h.uc.Stats(c.Context())
	if err != nil {
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, statsResponse{
		TotalSkills:    stats.TotalSkills,
		SkillsBySource: stats.SkillsBySource,
		LastUpdated:    stats.LastUpdated,
	})
}

func (h *SystemHandler) Health(c fiber.Ctx) error {
	health := h.uc.Health(c.Context())
	status := fiber.StatusOK
	if health.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return response.Success(c, status, health.Status, healthResponse{
		Status:    health.Status,
		Timestamp: time.Now().UTC(),
		Database:  health.Database,
	})
}

func (h *SystemHandler) Scrapes(c fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit", 20)
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	runs, err := h.uc.RecentRuns(c.Context(), limit)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	res := scrapeRunListResponse{Scrapes: make([]scrapeRunResponse, 0, len(runs))}
	for _, run := range runs {
		res.Scrapes = append(res.Scrapes, scrapeRunResponse{
			ID:           run.ID,
			Source:       string(run.Source),
			ItemsScraped: run.ItemsScraped,
			Status:       run.Status,
			ErrorMessage: run.ErrorMessage,
			StartedAt:    run.StartedAt,
			CompletedAt:  run.CompletedAt,
		})
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}
