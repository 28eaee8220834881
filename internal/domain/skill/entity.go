package skill

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source is one external ecosystem a skill is tracked in. The same project
// listed in two ecosystems is two independent skills.
type Source string

const (
	SourceGitHub      Source = "github"
	SourceNPM         Source = "npm"
	SourcePyPI        Source = "pypi"
	SourceHuggingFace Source = "huggingface"
)

func Sources() []Source {
	return []Source{SourceGitHub, SourceNPM, SourcePyPI, SourceHuggingFace}
}

func ParseSource(raw string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SourceGitHub, SourceNPM, SourcePyPI, SourceHuggingFace:
		return s, nil
	}
	return "", fmt.Errorf("unknown source: %q", raw)
}

// Skill is a tracked package/repository/model, unique per (Name, Source).
type Skill struct {
	ID          uuid.UUID
	Name        string
	Source      Source
	Description string
	URL         string
	Language    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Metrics is one immutable popularity measurement for a skill. Every metric
// field is optional; nil means the source does not supply it.
type Metrics struct {
	ID             uuid.UUID
	SkillID        uuid.UUID
	Stars          *int64
	Forks          *int64
	DownloadsDay   *int64
	DownloadsWeek  *int64
	DownloadsMonth *int64
	Likes          *int64
	LastActivity   *time.Time
	RecordedAt     time.Time
}

const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// ScrapeRun is the audit record of one ingestion attempt.
type ScrapeRun struct {
	ID           uuid.UUID
	Source       Source
	ItemsScraped int
	Status       string
	ErrorMessage *string
	StartedAt    time.Time
	CompletedAt  time.Time
}

// RunOutcome is what one ingestion attempt reports back to its trigger.
type RunOutcome struct {
	Source       Source
	Status       string
	ItemsScraped int
	Message      string
}

func (o RunOutcome) Failed() bool {
	return o.Status == RunStatusError
}
