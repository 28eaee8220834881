package handler

import (
	"errors"
	"strconv"
	"time"

	"skills-tracker/internal/pkg/response"
	"skills-tracker/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type SkillHandler struct {
	uc usecase.SkillUsecase
}

func NewSkillHandler(uc usecase.SkillUsecase) *SkillHandler {
	return &SkillHandler{uc: uc}
}

type metricsResponse struct {
	Stars          *int64     `json:"stars"`
	Forks          *int64     `json:"forks"`
	DownloadsDay   *int64     `json:"downloads_day"`
	DownloadsWeek  *int64     `json:"downloads_week"`
	DownloadsMonth *int64     `json:"downloads_month"`
	Likes          *int64     `json:"likes"`
	LastActivity   *time.Time `json:"last_activity"`
	RecordedAt     time.Time  `json:"recorded_at"`
}

type skillResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Source      string           `json:"source"`
	Description string           `json:"description"`
	URL         string           `json:"url"`
	Language    *string          `json:"language"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Metrics     *metricsResponse `json:"metrics"`
}

type skillListResponse struct {
	Skills    []skillResponse `json:"skills"`
	Total     int             `json:"total"`
	SortBy    string          `json:"sort_by"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type skillHistoryResponse struct {
	SkillID   uuid.UUID         `json:"skill_id"`
	SkillName string            `json:"skill_name"`
	Days      int               `json:"days"`
	History   []metricsResponse `json:"history"`
}

func (h *SkillHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/skills")
	grp.Get("/", h.List)
	grp.Get("/:id", h.Get)
	grp.Get("/:id/history", h.History)
}

func (h *SkillHandler) List(c fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit", 50)
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	params := usecase.SkillListParams{
		Sort:   c.Query("sort"),
		Source: c.Query("source"),
		Limit:  limit,
	}

	list, err := h.uc.ListSkills(c.Context(), params)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	res := skillListResponse{
		Skills:    make([]skillResponse, 0, len(list.Skills)),
		Total:     list.Total,
		SortBy:    list.SortBy,
		UpdatedAt: list.UpdatedAt,
	}
	for _, it := range list.Skills {
		res.Skills = append(res.Skills, toSkillResponse(it))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *SkillHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	item, err := h.uc.GetSkill(c.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			return response.Error(c, fiber.StatusNotFound, "Skill not found", nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, toSkillResponse(item))
}

func (h *SkillHandler) History(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	days, err := parseQueryInt(c, "days", 30)
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	hist, err := h.uc.History(c.Context(), id, days)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			return response.Error(c, fiber.StatusNotFound, "Skill not found", nil)
		case errors.Is(err, usecase.ErrInvalidInput):
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	res := skillHistoryResponse{
		SkillID:   hist.SkillID,
		SkillName: hist.SkillName,
		Days:      hist.Days,
		History:   make([]metricsResponse, 0, len(hist.History)),
	}
	for _, m := range hist.History {
		res.History = append(res.History, toMetricsResponse(m))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func toSkillResponse(it usecase.SkillItem) skillResponse {
	res := skillResponse{
		ID:          it.ID,
		Name:        it.Name,
		Source:      it.Source,
		Description: it.Description,
		URL:         it.URL,
		Language:    it.Language,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
	if it.Metrics != nil {
		m := toMetricsResponse(*it.Metrics)
		res.Metrics = &m
	}
	return res
}

func toMetricsResponse(m usecase.MetricsView) metricsResponse {
	return metricsResponse{
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

func parseQueryInt(c fiber.Ctx, key string, defaultVal int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return v, nil
}
