package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"skills-tracker/internal/database"
	"skills-tracker/internal/domain/skill"
	"skills-tracker/internal/scraper"

	"github.com/google/uuid"
)

// ValidationError marks a batch whose items fail basic shape requirements.
// The whole batch is rejected before any write.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Reason)
}

// Engine turns one adapter batch into durable state: upsert each skill by
// (name, source) and append one metrics snapshot per item, all inside a
// single transaction. The engine never retries; a failed batch surfaces as
// an error outcome and the next attempt comes from the next trigger.
type Engine struct {
	db     database.DB
	logger *log.Logger
	now    func() time.Time
}

func NewEngine(db database.DB, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{db: db, logger: logger, now: time.Now}
}

// Apply ingests items in input order. When an adapter yields two items with
// the same name in one batch, the later one wins the descriptive fields and
// both get snapshots. On any failure the whole batch rolls back and the
// returned outcome carries the error message.
func (e *Engine) Apply(ctx context.Context, source skill.Source, items []scraper.Item) (skill.RunOutcome, error) {
	if e == nil || e.db == nil {
		return errOutcome(source, fmt.Errorf("nil engine/db"))
	}

	if err := validateBatch(items); err != nil {
		return errOutcome(source, err)
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return errOutcome(source, err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	now := e.now().UTC()
	for i := range items {
		if err := e.applyItem(ctx, tx, source, items[i], now); err != nil {
			return errOutcome(source, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errOutcome(source, err)
	}

	return skill.RunOutcome{
		Source:       source,
		Status:       skill.RunStatusSuccess,
		ItemsScraped: len(items),
	}, nil
}

func (e *Engine) applyItem(ctx context.Context, tx database.Tx, source skill.Source, it scraper.Item, now time.Time) error {
	skillID, found, err := lookupSkill(ctx, tx, it.Name, source)
	if err != nil {
		return err
	}

	if !found {
		skillID = uuid.New()
		_, err = tx.Exec(ctx,
			`INSERT INTO skills (id, name, source, description, url, language, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`,
			skillID, it.Name, string(source), it.Description, it.URL, it.Language, now,
		)
	} else {
		// Description and url always follow the item; language only when
		// the item supplies one.
		_, err = tx.Exec(ctx,
			`UPDATE skills SET description = $2, url = $3,
			 language = COALESCE($4, language), updated_at = $5
			 WHERE id = $1`,
			skillID, it.Description, it.URL, it.Language, now,
		)
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO skill_metrics (id, skill_id, stars, forks, downloads_day, downloads_week, downloads_month, likes, last_activity, recorded_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		uuid.New(), skillID,
		it.Stars, it.Forks, it.DownloadsDay, it.DownloadsWeek, it.DownloadsMonth, it.Likes,
		it.LastActivity, now,
	)
	return err
}

func lookupSkill(ctx context.Context, tx database.Tx, name string, source skill.Source) (uuid.UUID, bool, error) {
	rows, err := tx.Query(ctx,
		`SELECT id FROM skills WHERE name = $1 AND source = $2`,
		name, string(source),
	)
	if err != nil {
		return uuid.Nil, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return uuid.Nil, false, rows.Err()
	}
	var id uuid.UUID
	if err := rows.Scan(&id); err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func validateBatch(items []scraper.Item) error {
	for i := range items {
		if strings.TrimSpace(items[i].Name) == "" {
			return &ValidationError{Index: i, Reason: "empty name"}
		}
		if strings.TrimSpace(items[i].URL) == "" {
			return &ValidationError{Index: i, Reason: "empty url"}
		}
	}
	return nil
}

func errOutcome(source skill.Source, err error) (skill.RunOutcome, error) {
	return skill.RunOutcome{
		Source:  source,
		Status:  skill.RunStatusError,
		Message: err.Error(),
	}, err
}
