package handler

import (
	"errors"

	"skills-tracker/internal/pkg/response"
	"skills-tracker/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type ScrapeHandler struct {
	uc usecase.ScrapeUsecase
}

func NewScrapeHandler(uc usecase.ScrapeUsecase) *ScrapeHandler {
	return &ScrapeHandler{uc: uc}
}

type scrapeOutcomeResponse struct {
	Source       string `json:"source"`
	Status       string `json:"status"`
	ItemsScraped int    `json:"items_scraped"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (h *ScrapeHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/scrape/:source", h.Trigger)
}

// Trigger runs one ingestion for the named source and reports its outcome,
// success or failure, to the caller.
func (h *ScrapeHandler) Trigger(c fiber.Ctx) error {
	outcome, err := h.uc.TriggerScrape(c.Context(), c.Params("source"))
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, "Invalid source: "+c.Params("source"), nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, scrapeOutcomeResponse{
		Source:       string(outcome.Source),
		Status:       outcome.Status,
		ItemsScraped: outcome.ItemsScraped,
		ErrorMessage: outcome.Message,
	})
}
