package usecase

import (
	"context"
	"errors"
	"log"

	"skills-tracker/internal/domain/skill"
	"skills-tracker/internal/scheduler"
)

// Trigger is the manual-run surface of the scheduler.
type Trigger interface {
	TriggerNow(ctx context.Context, source skill.Source) (skill.RunOutcome, error)
}

type ScrapeUsecase interface {
	TriggerScrape(ctx context.Context, rawSource string) (skill.RunOutcome, error)
}

type Scrape struct {
	trigger Trigger
	logger  *log.Logger
}

func NewScrapeUsecase(trigger Trigger, logger *log.Logger) *Scrape {
	if logger == nil {
		logger = log.Default()
	}
	return &Scrape{trigger: trigger, logger: logger}
}

// TriggerScrape validates rawSource against the fixed enumeration before any
// run starts, then runs one ingestion synchronously and returns its outcome.
func (u *Scrape) TriggerScrape(ctx context.Context, rawSource string) (skill.RunOutcome, error) {
	src, err := skill.ParseSource(rawSource)
	if err != nil {
		return skill.RunOutcome{}, ErrInvalidInput
	}

	outcome, err := u.trigger.TriggerNow(ctx, src)
	if err != nil {
		if errors.Is(err, scheduler.ErrUnknownSource) {
			return skill.RunOutcome{}, ErrInvalidInput
		}
		u.logger.Printf("manual scrape failed to start | source=%s error=%v", src, err)
		return skill.RunOutcome{}, ErrInternal
	}
	return outcome, nil
}
