package scraper

import (
	"context"
	"fmt"
	"net/http"

	"skills-tracker/internal/config"
	"skills-tracker/internal/domain/skill"
)

// HuggingFaceScraper pulls the most downloaded and most liked models from
// the Hugging Face hub API.
type HuggingFaceScraper struct {
	client   *http.Client
	apiBase  string
	siteBase string
	maxItems int
}

func NewHuggingFaceScraper(cfg config.SourceConfig) *HuggingFaceScraper {
	return &HuggingFaceScraper{
		client:   newHTTPClient(),
		apiBase:  "https://huggingface.co",
		siteBase: "https://huggingface.co",
		maxItems: cfg.MaxItems,
	}
}

func (s *HuggingFaceScraper) Source() skill.Source {
	return skill.SourceHuggingFace
}

type hfModel struct {
	ModelID      string      `json:"modelId"`
	Downloads    int64       `json:"downloads"`
	Likes        int64       `json:"likes"`
	LastModified *string     `json:"lastModified"`
	CardData     *hfCardData `json:"cardData"`
}

type hfCardData struct {
	Description string `json:"description"`
}

func (s *HuggingFaceScraper) Scrape(ctx context.Context) ([]Item, error) {
	if s == nil {
		return nil, fmt.Errorf("nil scraper")
	}

	queries := []struct {
		sort  string
		limit int
	}{
		{sort: "downloads", limit: 50},
		{sort: "likes", limit: 30},
	}

	items := make([]Item, 0, s.maxItems)
	for _, q := range queries {
		u := fmt.Sprintf("%s/api/models?sort=%s&direction=-1&limit=%d", s.apiBase, q.sort, q.limit)

		var models []hfModel
		if err := fetchJSON(ctx, s.client, u, nil, &models); err != nil {
			return nil, &NetworkError{Source: s.Source(), Op: "models sort=" + q.sort, Err: err}
		}

		for _, m := range models {
			if m.ModelID == "" {
				continue
			}
			items = append(items, s.parseModel(m))
		}
	}

	return capItems(items, s.maxItems), nil
}

func (s *HuggingFaceScraper) parseModel(m hfModel) Item {
	desc := ""
	if m.CardData != nil {
		desc = truncate(m.CardData.Description, 500)
	}
	lang := "Python"
	return Item{
		Name:           m.ModelID,
		Description:    desc,
		URL:            s.siteBase + "/" + m.ModelID,
		Language:       &lang,
		DownloadsMonth: int64Ptr(m.Downloads),
		Likes:          int64Ptr(m.Likes),
		LastActivity:   parseTimeOrNil(m.LastModified),
	}
}
