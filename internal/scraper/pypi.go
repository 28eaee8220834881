package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"skills-tracker/internal/config"
	"skills-tracker/internal/domain/skill"

	"github.com/gocolly/colly/v2"
)

// PyPIScraper discovers packages through the pypi.org search pages (HTML,
// there is no search API) and pulls metadata and download stats per package.
// When the plain HTTP fetch of the search page is blocked, an optional
// headless-browser fallback takes over.
type PyPIScraper struct {
	client       *http.Client
	siteBase     string
	statsBase    string
	allowedHost  string
	maxItems     int
	perQuery     int
	headless     bool
	headlessFunc func(ctx context.Context, searchURL string) ([]string, error)
}

func NewPyPIScraper(cfg config.SourceConfig, headlessFallback bool) *PyPIScraper {
	s := &PyPIScraper{
		client:    newHTTPClient(),
		siteBase:  "https://pypi.org",
		statsBase: "https://pypistats.org",
		maxItems:  cfg.MaxItems,
		perQuery:  10,
		headless:  headlessFallback,
	}
	s.allowedHost = hostFromBaseURL(s.siteBase)
	s.headlessFunc = fetchSearchPageHeadless
	return s
}

func (s *PyPIScraper) Source() skill.Source {
	return skill.SourcePyPI
}

type pypiMetadataResponse struct {
	Info     pypiInfo                 `json:"info"`
	Releases map[string][]pypiRelease `json:"releases"`
}

type pypiInfo struct {
	Summary    string `json:"summary"`
	ProjectURL string `json:"project_url"`
}

type pypiRelease struct {
	UploadTime *string `json:"upload_time"`
}

type pypiStatsResponse struct {
	Data pypiStatsData `json:"data"`
}

type pypiStatsData struct {
	LastDay   int64 `json:"last_day"`
	LastWeek  int64 `json:"last_week"`
	LastMonth int64 `json:"last_month"`
}

var pypiQueries = []string{"tensorflow", "pytorch", "scikit-learn", "transformers", "openai"}

func (s *PyPIScraper) Scrape(ctx context.Context) ([]Item, error) {
	if s == nil {
		return nil, fmt.Errorf("nil scraper")
	}

	names := make([]string, 0, s.maxItems)
	seen := map[string]struct{}{}
	var lastErr error
	anySearchOK := false

	for _, q := range pypiQueries {
		found, err := s.searchPackageNames(ctx, q)
		if err != nil {
			lastErr = err
			continue
		}
		anySearchOK = true
		for _, n := range found {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	if !anySearchOK {
		return nil, &NetworkError{Source: s.Source(), Op: "search", Err: lastErr}
	}

	items := make([]Item, 0, len(names))
	var mu sync.Mutex

	pool := NewWorkerPool(4, len(names), 6)
	results := pool.Run(ctx)
	for _, name := range names {
		name := name
		pool.Submit(func(ctx context.Context) error {
			it, err := s.fetchPackage(ctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			items = append(items, it)
			mu.Unlock()
			return nil
		})
	}
	pool.Close()
	for range results {
		// Per-package metadata failures are tolerated; the package is
		// simply absent from this run.
	}
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Source: s.Source(), Op: "metadata", Err: err}
	}

	return capItems(items, s.maxItems), nil
}

// searchPackageNames scrapes one search results page for package names.
func (s *PyPIScraper) searchPackageNames(ctx context.Context, query string) ([]string, error) {
	searchURL := fmt.Sprintf("%s/search/?q=%s", s.siteBase, url.QueryEscape(query))

	names, err := s.collectNames(ctx, searchURL)
	if err != nil && s.headless && s.headlessFunc != nil {
		names, err = s.headlessFunc(ctx, searchURL)
	}
	if err != nil {
		return nil, err
	}
	if len(names) > s.perQuery {
		names = names[:s.perQuery]
	}
	return names, nil
}

func (s *PyPIScraper) collectNames(ctx context.Context, searchURL string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.AllowedDomains(s.allowedHost),
	)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: 300 * time.Millisecond})

	names := make([]string, 0, s.perQuery)
	c.OnHTML("a.package-snippet", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		name := packageNameFromHref(href)
		if name != "" {
			names = append(names, name)
		}
	})

	var reqErr error
	c.OnError(func(_ *colly.Response, err error) {
		reqErr = err
	})

	if err := c.Visit(searchURL); err != nil {
		return nil, err
	}
	c.Wait()

	if reqErr != nil {
		return nil, reqErr
	}
	return names, nil
}

func (s *PyPIScraper) fetchPackage(ctx context.Context, name string) (Item, error) {
	var meta pypiMetadataResponse
	metaURL := fmt.Sprintf("%s/pypi/%s/json", s.siteBase, name)
	if err := fetchJSON(ctx, s.client, metaURL, nil, &meta); err != nil {
		return Item{}, err
	}

	projURL := strings.TrimSpace(meta.Info.ProjectURL)
	if projURL == "" {
		projURL = fmt.Sprintf("%s/project/%s/", s.siteBase, name)
	}

	lang := "Python"
	it := Item{
		Name:         name,
		Description:  meta.Info.Summary,
		URL:          projURL,
		Language:     &lang,
		LastActivity: latestUploadTime(meta.Releases),
	}

	// Download stats live on a separate service; absence degrades to nil.
	var stats pypiStatsResponse
	statsURL := fmt.Sprintf("%s/api/packages/%s/recent", s.statsBase, name)
	if err := fetchJSON(ctx, s.client, statsURL, nil, &stats); err == nil {
		it.DownloadsDay = int64Ptr(stats.Data.LastDay)
		it.DownloadsWeek = int64Ptr(stats.Data.LastWeek)
		it.DownloadsMonth = int64Ptr(stats.Data.LastMonth)
	}

	return it, nil
}

func latestUploadTime(releases map[string][]pypiRelease) *time.Time {
	var latest *time.Time
	for _, files := range releases {
		for _, f := range files {
			t := parseTimeOrNil(f.UploadTime)
			if t == nil {
				continue
			}
			if latest == nil || t.After(*latest) {
				latest = t
			}
		}
	}
	return latest
}

func packageNameFromHref(href string) string {
	const prefix = "/project/"
	i := strings.Index(href, prefix)
	if i < 0 {
		return ""
	}
	rest := href[i+len(prefix):]
	if j := strings.Index(rest, "/"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func hostFromBaseURL(base string) string {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		return h
	}
	return u.Host
}
