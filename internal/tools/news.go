package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// News searches recent news articles through NewsAPI
type News struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	pageSize   int
}

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"articles"`
}

// Article is the truncated form returned to the agent
type Article struct {
	Source      string `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// NewNews creates the news_search tool
func NewNews(baseURL, apiKey, userAgent string, timeout time.Duration) *News {
	return &News{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		pageSize:   10,
	}
}

// Name returns the tool name
func (n *News) Name() string { return "news_search" }

// Description tells the agent when to use the tool
func (n *News) Description() string {
	return "Search news articles. Each call returns up to 10 articles with source, title, description and URL. " +
		"Only call it again with a different query. Input: a search query."
}

// Invoke runs the search
func (n *News) Invoke(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", fmt.Errorf("empty query")
	}
	if n.apiKey == "" {
		return "", errors.New("news API key is not configured")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "relevancy")
	params.Set("pageSize", fmt.Sprintf("%d", n.pageSize))
	params.Set("page", "1")
	params.Set("apiKey", n.apiKey)

	var resp newsResponse
	if err := getJSON(ctx, n.httpClient, n.baseURL+"/v2/everything?"+params.Encode(), n.userAgent, &resp); err != nil {
		return "", err
	}
	if resp.Status == "error" {
		return "", fmt.Errorf("news API: %s", resp.Message)
	}

	articles := make([]Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		articles = append(articles, Article{
			Source:      a.Source.Name,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
		})
	}

	out, err := json.Marshal(articles)
	if err != nil {
		return "", fmt.Errorf("encode articles: %w", err)
	}
	return string(out), nil
}
