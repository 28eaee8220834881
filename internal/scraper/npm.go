package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"skills-tracker/internal/config"
	"skills-tracker/internal/domain/skill"
)

// NPMScraper searches the npm registry and enriches each package with its
// last-week download count. A failed downloads lookup leaves the field nil
// rather than failing the package.
type NPMScraper struct {
	client        *http.Client
	registryBase  string
	downloadsBase string
	siteBase      string
	token         string
	maxItems      int
}

func NewNPMScraper(cfg config.SourceConfig) *NPMScraper {
	return &NPMScraper{
		client:        newHTTPClient(),
		registryBase:  "https://registry.npmjs.org",
		downloadsBase: "https://api.npmjs.org",
		siteBase:      "https://www.npmjs.com",
		token:         cfg.Token,
		maxItems:      cfg.MaxItems,
	}
}

func (s *NPMScraper) Source() skill.Source {
	return skill.SourceNPM
}

type npmSearchResponse struct {
	Objects []npmSearchObject `json:"objects"`
}

type npmSearchObject struct {
	Package npmPackage `json:"package"`
}

type npmPackage struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Date        npmDate `json:"date"`
}

type npmDate struct {
	Modified *string `json:"modified"`
}

type npmDownloadsResponse struct {
	Downloads int64 `json:"downloads"`
}

var npmQueries = []string{"ai", "machine-learning", "tensorflow", "openai", "langchain"}

func (s *NPMScraper) Scrape(ctx context.Context) ([]Item, error) {
	if s == nil {
		return nil, fmt.Errorf("nil scraper")
	}

	headers := map[string]string{}
	if s.token != "" {
		headers["Authorization"] = "Bearer " + s.token
	}

	pkgs := make([]npmPackage, 0, s.maxItems)
	for _, q := range npmQueries {
		u := fmt.Sprintf(
			"%s/-/v1/search?text=%s&size=20&popularity=1.0&quality=0.5&maintenance=1.0",
			s.registryBase, url.QueryEscape(q),
		)

		var res npmSearchResponse
		if err := fetchJSON(ctx, s.client, u, headers, &res); err != nil {
			return nil, &NetworkError{Source: s.Source(), Op: "search " + q, Err: err}
		}
		for _, obj := range res.Objects {
			pkgs = append(pkgs, obj.Package)
		}
	}
	if len(pkgs) > s.maxItems && s.maxItems > 0 {
		pkgs = pkgs[:s.maxItems]
	}

	items := make([]Item, len(pkgs))
	var mu sync.Mutex

	pool := NewWorkerPool(4, len(pkgs), 8)
	results := pool.Run(ctx)
	for i, pkg := range pkgs {
		i, pkg := i, pkg
		pool.Submit(func(ctx context.Context) error {
			it := s.parsePackage(ctx, pkg)
			mu.Lock()
			items[i] = it
			mu.Unlock()
			return nil
		})
	}
	pool.Close()
	for range results {
	}
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Source: s.Source(), Op: "downloads", Err: err}
	}

	return items, nil
}

func (s *NPMScraper) parsePackage(ctx context.Context, pkg npmPackage) Item {
	lang := "JavaScript"
	it := Item{
		Name:         pkg.Name,
		Description:  pkg.Description,
		URL:          s.siteBase + "/package/" + pkg.Name,
		Language:     &lang,
		LastActivity: parseTimeOrNil(pkg.Date.Modified),
	}

	// Secondary lookup; degrades to nil on any failure.
	var dl npmDownloadsResponse
	u := fmt.Sprintf("%s/downloads/point/last-week/%s", s.downloadsBase, pkg.Name)
	if err := fetchJSON(ctx, s.client, u, nil, &dl); err == nil {
		it.DownloadsWeek = int64Ptr(dl.Downloads)
	}

	return it
}
