package repository

import (
	"context"
	"fmt"

	"skills-tracker/internal/database"
	"skills-tracker/internal/domain/skill"
)

type ScrapeRunRepository interface {
	Insert(ctx context.Context, run skill.ScrapeRun) error
	ListRecent(ctx context.Context, limit int) ([]skill.ScrapeRun, error)
}

type PostgresScrapeRunRepository struct {
	db database.DB
}

func NewPostgresScrapeRunRepository(db database.DB) *PostgresScrapeRunRepository {
	return &PostgresScrapeRunRepository{db: db}
}

func (r *PostgresScrapeRunRepository) Insert(ctx context.Context, run skill.ScrapeRun) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("nil repository/db")
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO scrape_runs (id, source, items_scraped, status, error_message, started_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		run.ID, string(run.Source), run.ItemsScraped, run.Status, run.ErrorMessage,
		run.StartedAt, run.CompletedAt,
	)
	return err
}

func (r *PostgresScrapeRunRepository) ListRecent(ctx context.Context, limit int) ([]skill.ScrapeRun, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("nil repository/db")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, source, items_scraped, status, error_message, started_at, completed_at
		 FROM scrape_runs
		 ORDER BY started_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]skill.ScrapeRun, 0, limit)
	for rows.Next() {
		var run skill.ScrapeRun
		var src string
		if err := rows.Scan(
			&run.ID, &src, &run.ItemsScraped, &run.Status, &run.ErrorMessage,
			&run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, err
		}
		run.Source = skill.Source(src)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
