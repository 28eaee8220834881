package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skills-tracker/internal/database"
	"skills-tracker/internal/domain/skill"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

const (
	SortLatest = "latest"
	SortHot    = "hot"
	SortUsed   = "used"
)

// SkillWithMetrics is a skill joined with its most recent snapshot. Metrics
// is nil when no snapshot exists yet.
type SkillWithMetrics struct {
	Skill   skill.Skill
	Metrics *skill.Metrics
}

type SkillListFilter struct {
	Sort   string
	Source *skill.Source
	Limit  int
}

type SourceStats struct {
	TotalSkills    int
	SkillsBySource map[string]int
	LastUpdated    *time.Time
}

type SkillRepository interface {
	ListSkills(ctx context.Context, filter SkillListFilter) ([]SkillWithMetrics, int, error)
	GetSkill(ctx context.Context, id uuid.UUID) (SkillWithMetrics, error)
	History(ctx context.Context, id uuid.UUID, since time.Time) ([]skill.Metrics, error)
	Stats(ctx context.Context) (SourceStats, error)
}

type PostgresSkillRepository struct {
	db database.DB
}

func NewPostgresSkillRepository(db database.DB) *PostgresSkillRepository {
	return &PostgresSkillRepository{db: db}
}

const skillWithMetricsColumns = `
	s.id, s.name, s.source, s.description, s.url, s.language, s.created_at, s.updated_at,
	m.id, m.stars, m.forks, m.downloads_day, m.downloads_week, m.downloads_month, m.likes, m.last_activity, m.recorded_at`

const latestMetricsJoin = `
	LEFT JOIN LATERAL (
		SELECT id, stars, forks, downloads_day, downloads_week, downloads_month, likes, last_activity, recorded_at
		FROM skill_metrics
		WHERE skill_id = s.id
		ORDER BY recorded_at DESC
		LIMIT 1
	) m ON true`

func (r *PostgresSkillRepository) ListSkills(ctx context.Context, filter SkillListFilter) ([]SkillWithMetrics, int, error) {
	if r == nil || r.db == nil {
		return nil, 0, fmt.Errorf("nil repository/db")
	}

	orderBy := ""
	switch filter.Sort {
	case SortHot:
		orderBy = "m.downloads_week DESC NULLS LAST"
	case SortUsed:
		orderBy = "m.downloads_month DESC NULLS LAST"
	case SortLatest, "":
		orderBy = "s.updated_at DESC"
	default:
		return nil, 0, fmt.Errorf("unknown sort: %q", filter.Sort)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	where := ""
	args := []any{}
	if filter.Source != nil {
		where = "WHERE s.source = $1"
		args = append(args, string(*filter.Source))
	}

	query := fmt.Sprintf(
		`SELECT %s FROM skills s %s %s ORDER BY %s LIMIT %d`,
		skillWithMetricsColumns, latestMetricsJoin, where, orderBy, limit,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]SkillWithMetrics, 0, limit)
	for rows.Next() {
		s, err := scanSkillWithMetrics(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM skills s ` + where
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (r *PostgresSkillRepository) GetSkill(ctx context.Context, id uuid.UUID) (SkillWithMetrics, error) {
	if r == nil || r.db == nil {
		return SkillWithMetrics{}, fmt.Errorf("nil repository/db")
	}

	query := fmt.Sprintf(
		`SELECT %s FROM skills s %s WHERE s.id = $1`,
		skillWithMetricsColumns, latestMetricsJoin,
	)

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return SkillWithMetrics{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return SkillWithMetrics{}, err
		}
		return SkillWithMetrics{}, ErrNotFound
	}
	return scanSkillWithMetrics(rows)
}

func (r *PostgresSkillRepository) History(ctx context.Context, id uuid.UUID, since time.Time) ([]skill.Metrics, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("nil repository/db")
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, skill_id, stars, forks, downloads_day, downloads_week, downloads_month, likes, last_activity, recorded_at
		 FROM skill_metrics
		 WHERE skill_id = $1 AND recorded_at >= $2
		 ORDER BY recorded_at DESC`,
		id, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]skill.Metrics, 0)
	for rows.Next() {
		var m skill.Metrics
		if err := rows.Scan(
			&m.ID, &m.SkillID,
			&m.Stars, &m.Forks, &m.DownloadsDay, &m.DownloadsWeek, &m.DownloadsMonth, &m.Likes,
			&m.LastActivity, &m.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresSkillRepository) Stats(ctx context.Context) (SourceStats, error) {
	if r == nil || r.db == nil {
		return SourceStats{}, fmt.Errorf("nil repository/db")
	}

	stats := SourceStats{SkillsBySource: map[string]int{}}

	rows, err := r.db.Query(ctx, `SELECT source, COUNT(*) FROM skills GROUP BY source`)
	if err != nil {
		return SourceStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return SourceStats{}, err
		}
		stats.SkillsBySource[src] = n
		stats.TotalSkills += n
	}
	if err := rows.Err(); err != nil {
		return SourceStats{}, err
	}

	if err := r.db.QueryRow(ctx, `SELECT MAX(updated_at) FROM skills`).Scan(&stats.LastUpdated); err != nil {
		return SourceStats{}, err
	}

	return stats, nil
}

func scanSkillWithMetrics(rows database.Rows) (SkillWithMetrics, error) {
	var s skill.Skill
	var src string

	var metricsID *uuid.UUID
	var stars, forks, dlDay, dlWeek, dlMonth, likes *int64
	var lastActivity, recordedAt *time.Time

	if err := rows.Scan(
		&s.ID, &s.Name, &src, &s.Description, &s.URL, &s.Language, &s.CreatedAt, &s.UpdatedAt,
		&metricsID, &stars, &forks, &dlDay, &dlWeek, &dlMonth, &likes, &lastActivity, &recordedAt,
	); err != nil {
		return SkillWithMetrics{}, err
	}
	s.Source = skill.Source(strings.TrimSpace(src))

	out := SkillWithMetrics{Skill: s}
	if metricsID != nil && recordedAt != nil {
		out.Metrics = &skill.Metrics{
			ID:             *metricsID,
			SkillID:        s.ID,
			Stars:          stars,
			Forks:          forks,
			DownloadsDay:   dlDay,
			DownloadsWeek:  dlWeek,
			DownloadsMonth: dlMonth,
			Likes:          likes,
			LastActivity:   lastActivity,
			RecordedAt:     *recordedAt,
		}
	}
	return out, nil
}
