package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WikipediaSearch lists Wikipedia page titles matching a query
type WikipediaSearch struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limit      int
}

// WikipediaSummary returns the lead summary of a Wikipedia page
type WikipediaSummary struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	maxBytes   int
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

type wikiSummaryResponse struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// NewWikipediaSearch creates the wikipedia_search tool
func NewWikipediaSearch(baseURL, userAgent string, timeout time.Duration) *WikipediaSearch {
	return &WikipediaSearch{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limit:      10,
	}
}

// Name returns the tool name
func (w *WikipediaSearch) Name() string { return "wikipedia_search" }

// Description tells the agent when to use the tool
func (w *WikipediaSearch) Description() string {
	return "Find the titles of Wikipedia pages relevant to a search query. " +
		"Use it to discover exact page titles, then call wikipedia_summary. " +
		"Input: a search query (e.g. Singapore economy)."
}

// Invoke runs the search
func (w *WikipediaSearch) Invoke(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", fmt.Errorf("empty query")
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("format", "json")
	params.Set("srlimit", fmt.Sprintf("%d", w.limit))
	params.Set("srsearch", query)

	var resp wikiSearchResponse
	if err := getJSON(ctx, w.httpClient, w.baseURL+"/w/api.php?"+params.Encode(), w.userAgent, &resp); err != nil {
		return "", err
	}

	if len(resp.Query.Search) == 0 {
		return "No Wikipedia pages found.", nil
	}

	var sb strings.Builder
	for _, hit := range resp.Query.Search {
		fmt.Fprintf(&sb, "- %s: %s\n", hit.Title, stripTags(hit.Snippet))
	}
	return strings.TrimSpace(sb.String()), nil
}

// NewWikipediaSummary creates the wikipedia_summary tool
func NewWikipediaSummary(baseURL, userAgent string, timeout time.Duration, maxBytes int) *WikipediaSummary {
	return &WikipediaSummary{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
	}
}

// Name returns the tool name
func (w *WikipediaSummary) Name() string { return "wikipedia_summary" }

// Description tells the agent when to use the tool
func (w *WikipediaSummary) Description() string {
	return "Get the summary of a Wikipedia page. " +
		"Input: an exact Wikipedia page title (e.g. Economy of Singapore)."
}

// Invoke fetches the page summary
func (w *WikipediaSummary) Invoke(ctx context.Context, input string) (string, error) {
	title := strings.TrimSpace(input)
	if title == "" {
		return "", fmt.Errorf("empty page title")
	}

	endpoint := w.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	var resp wikiSummaryResponse
	err := getJSON(ctx, w.httpClient, endpoint, w.userAgent, &resp)
	if err != nil {
		var se *httpStatusError
		if asStatus(err, &se) && se.code == http.StatusNotFound {
			return "Page does not exist.", nil
		}
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(resp.Title)
	if resp.Description != "" {
		sb.WriteString(" (" + resp.Description + ")")
	}
	sb.WriteString("\n")
	sb.WriteString(resp.Extract)
	if page := resp.ContentURLs.Desktop.Page; page != "" {
		sb.WriteString("\nSource: " + page)
	}
	return truncate(sb.String(), w.maxBytes), nil
}
