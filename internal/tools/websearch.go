package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/safarlabs/safar/internal/domain"
	"github.com/safarlabs/safar/internal/logging"
)

// SearchResult is one web search snippet.
type SearchResult struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	URL         string `json:"url"`
	PublishDate string `json:"publish_date,omitempty"`
}

// WebSearchConfig configures the web search tool.
type WebSearchConfig struct {
	APIKey      string
	BaseURL     string // defaults to the Tavily endpoint
	TTL         time.Duration
	MinInterval time.Duration
	MaxResults  int
	Timeout     time.Duration
}

// WebSearch is the destination-suggestion search tool. It serves from a
// TTL cache, rate-limits per normalized query, calls the live provider,
// and falls back to fixed mock results on any provider failure so a
// suggestion query always gets an answer. The result's Source field
// ("cache" | "tavily" | "mock") is the only way callers can tell the
// tiers apart.
type WebSearch struct {
	cfg    WebSearchConfig
	client *http.Client
	log    *logging.Logger

	mu       sync.Mutex
	cache    map[string]cacheEntry
	lastCall map[string]time.Time

	// test seams
	now   func() time.Time
	sleep func(time.Duration)
}

type cacheEntry struct {
	at      time.Time
	results []SearchResult
}

// NewWebSearch creates the web search tool.
func NewWebSearch(cfg WebSearchConfig, log *logging.Logger) *WebSearch {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com/search"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = time.Second
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &WebSearch{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      log.Sub("websearch"),
		cache:    make(map[string]cacheEntry),
		lastCall: make(map[string]time.Time),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Description() string {
	return "Search the web for travel destination suggestions. Params: query, location (optional), max_results (optional)."
}

func (w *WebSearch) Run(ctx context.Context, params map[string]any) domain.ToolResult {
	query := stringParam(params, "query", "q")
	location := stringParam(params, "location")
	maxResults := intParam(params, "max_results", w.cfg.MaxResults)

	return w.Search(ctx, query, location, maxResults)
}

// Search runs the three-tier lookup for a query.
func (w *WebSearch) Search(ctx context.Context, query, location string, maxResults int) domain.ToolResult {
	key := cacheKey(query, location, maxResults)

	// Rate limit per key: serve the cache if it is fresh, otherwise wait
	// out the remaining interval. A waiter that finds lastCall changed on
	// waking lost its turn to another caller and goes around again, so at
	// most one provider call lands per key per interval.
	w.mu.Lock()
	for {
		now := w.now()
		if entry, ok := w.cache[key]; ok && now.Sub(entry.at) <= w.cfg.TTL {
			w.lastCall[key] = now
			results := entry.results
			w.mu.Unlock()
			return searchResult(query, "cache", results)
		}

		last := w.lastCall[key]
		wait := w.cfg.MinInterval - now.Sub(last)
		if wait <= 0 {
			break
		}
		w.mu.Unlock()
		w.sleep(wait)
		w.mu.Lock()
		if w.lastCall[key].Equal(last) {
			break
		}
	}
	// Claim the interval before the provider call so concurrent waiters
	// see it.
	w.lastCall[key] = w.now()
	w.mu.Unlock()

	results, err := w.callProvider(ctx, query, location, maxResults)
	source := "tavily"
	if err != nil {
		w.log.Warn().Err(err).Str("query", query).Msg("provider search failed, using mock results")
		results = mockResults(location, maxResults)
		source = "mock"
	}

	w.mu.Lock()
	w.cache[key] = cacheEntry{at: w.now(), results: results}
	w.lastCall[key] = w.now()
	w.mu.Unlock()

	return searchResult(query, source, results)
}

func cacheKey(query, location string, maxResults int) string {
	return fmt.Sprintf("web:%s|loc:%s|k:%d", strings.ToLower(strings.TrimSpace(query)), location, maxResults)
}

func searchResult(query, source string, results []SearchResult) domain.ToolResult {
	items := make([]any, len(results))
	for i, r := range results {
		items[i] = map[string]any{
			"title":        r.Title,
			"snippet":      r.Snippet,
			"url":          r.URL,
			"publish_date": r.PublishDate,
		}
	}
	return domain.ToolResult{
		Success: true,
		Status:  200,
		Source:  source,
		Results: items,
		Data:    map[string]any{"query": query},
	}
}

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []tavilyItem `json:"results"`
}

type tavilyItem struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	PublishedDate string `json:"published_date"`
}

func (w *WebSearch) callProvider(ctx context.Context, query, location string, maxResults int) ([]SearchResult, error) {
	if w.cfg.APIKey == "" {
		return nil, fmt.Errorf("no search API key configured")
	}

	// Tavily has no location parameter; fold it into the query text.
	if location != "" {
		query = query + " " + location
	}
	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search provider: %d %s", resp.StatusCode, string(msg))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]SearchResult, 0, maxResults)
	for _, it := range parsed.Results {
		if len(results) >= maxResults {
			break
		}
		results = append(results, SearchResult{
			Title:       it.Title,
			Snippet:     it.Content,
			URL:         it.URL,
			PublishDate: it.PublishedDate,
		})
	}
	return results, nil
}

// mockResults are the fixed fallback suggestions served when the live
// provider is unreachable.
func mockResults(location string, maxResults int) []SearchResult {
	samples := []SearchResult{
		{
			Title:       "همدان — جاذبه‌های طبیعی",
			Snippet:     "همدان شهری تاریخی با غار علیصدر؛ بهترین زمان بازدید بهار و پاییز است.",
			URL:         "https://example.com/hamadan-attractions",
			PublishDate: "2024-02-12",
		},
		{
			Title:       "شیراز — باغ‌ها و اماکن تاریخی",
			Snippet:     "شیراز به خاطر تخت جمشید و باغ ارم مشهور است؛ فصل بهار برای دیدن گل‌ها عالی است.",
			URL:         "https://example.com/shiraz-guide",
			PublishDate: "2023-11-03",
		},
		{
			Title:       "اصفهان — پل‌ها و میدان نقش جهان",
			Snippet:     "اصفهان با معماری منحصر به فرد و غذاهای محلی یک مقصد مناسب برای سفرهای کوتاه است.",
			URL:         "https://example.com/esfahan-highlights",
			PublishDate: "2022-09-15",
		},
	}

	var results []SearchResult
	if location != "" {
		needle := strings.ToLower(location)
		for _, s := range samples {
			if strings.Contains(strings.ToLower(s.Title), needle) || strings.Contains(strings.ToLower(s.Snippet), needle) {
				results = append(results, s)
			}
		}
	}
	for _, s := range samples {
		if !containsResult(results, s) {
			results = append(results, s)
		}
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

func containsResult(rs []SearchResult, r SearchResult) bool {
	for _, x := range rs {
		if x.URL == r.URL {
			return true
		}
	}
	return false
}
