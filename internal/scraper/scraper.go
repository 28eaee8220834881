package scraper

import (
	"context"
	"fmt"
	"time"

	"skills-tracker/internal/domain/skill"
)

// Item is one normalized result from a scrape. Name, Description and URL are
// required (Description may be empty); everything else is optional and stays
// nil when the source does not supply it.
type Item struct {
	Name        string
	Description string
	URL         string
	Language    *string

	Stars          *int64
	Forks          *int64
	DownloadsDay   *int64
	DownloadsWeek  *int64
	DownloadsMonth *int64
	Likes          *int64
	LastActivity   *time.Time
}

// Scraper fetches and normalizes items from one external ecosystem. A
// scraper never touches storage; it only talks to the network.
type Scraper interface {
	Source() skill.Source
	Scrape(ctx context.Context) ([]Item, error)
}

// NetworkError means the upstream was unreachable or kept erroring after the
// scraper's internal retries. The run fails; the next attempt is the next
// scheduled or manual trigger.
type NetworkError struct {
	Source skill.Source
	Op     string
	Err    error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
