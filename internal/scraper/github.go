package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"skills-tracker/internal/config"
	"skills-tracker/internal/domain/skill"
)

// GitHubScraper searches AI-related repositories via the GitHub search API.
// The token is optional; without it the adapter runs against the
// unauthenticated rate limit.
type GitHubScraper struct {
	client   *http.Client
	apiBase  string
	token    string
	maxItems int
}

func NewGitHubScraper(cfg config.SourceConfig) *GitHubScraper {
	return &GitHubScraper{
		client:   newHTTPClient(),
		apiBase:  "https://api.github.com",
		token:    cfg.Token,
		maxItems: cfg.MaxItems,
	}
}

func (s *GitHubScraper) Source() skill.Source {
	return skill.SourceGitHub
}

type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

type githubRepo struct {
	Name            string  `json:"name"`
	Owner           ghOwner `json:"owner"`
	Description     *string `json:"description"`
	HTMLURL         string  `json:"html_url"`
	Language        *string `json:"language"`
	StargazersCount int64   `json:"stargazers_count"`
	ForksCount      int64   `json:"forks_count"`
	UpdatedAt       *string `json:"updated_at"`
}

type ghOwner struct {
	Login string `json:"login"`
}

var githubQueries = []string{
	"topic:ai+language:python",
	"topic:machine-learning+language:python",
	"topic:deep-learning+language:python",
	"topic:llm+language:python",
}

func (s *GitHubScraper) Scrape(ctx context.Context) ([]Item, error) {
	if s == nil {
		return nil, fmt.Errorf("nil scraper")
	}

	headers := map[string]string{}
	if s.token != "" {
		headers["Authorization"] = "Bearer " + s.token
	}

	items := make([]Item, 0, s.maxItems)
	for _, q := range githubQueries {
		// q carries pre-encoded "+" separators, so it bypasses url.Values.
		u := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&order=desc&per_page=50", s.apiBase, q)

		var res githubSearchResponse
		if err := fetchJSON(ctx, s.client, u, headers, &res); err != nil {
			return nil, &NetworkError{Source: s.Source(), Op: "search " + url.QueryEscape(q), Err: err}
		}

		for _, repo := range res.Items {
			items = append(items, s.parseRepo(repo))
		}
	}

	return capItems(items, s.maxItems), nil
}

func (s *GitHubScraper) parseRepo(repo githubRepo) Item {
	desc := ""
	if repo.Description != nil {
		desc = *repo.Description
	}
	return Item{
		Name:         repo.Owner.Login + "/" + repo.Name,
		Description:  desc,
		URL:          repo.HTMLURL,
		Language:     repo.Language,
		Stars:        int64Ptr(repo.StargazersCount),
		Forks:        int64Ptr(repo.ForksCount),
		LastActivity: parseTimeOrNil(repo.UpdatedAt),
	}
}
