package tools

import (
	"fmt"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// FromConfig builds the registry of enabled tools
func FromConfig(cfg model.ToolsConfig, limiter *worker.Limiter) (*Registry, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	var robots *RobotsChecker
	if cfg.RespectRobots {
		robots = NewRobotsChecker(cfg.UserAgent, timeout)
	}

	var enabled []Tool
	for _, name := range cfg.Enabled {
		switch name {
		case "wikipedia_search":
			enabled = append(enabled, NewWikipediaSearch(cfg.WikipediaURL, cfg.UserAgent, timeout))
		case "wikipedia_summary":
			enabled = append(enabled, NewWikipediaSummary(cfg.WikipediaURL, cfg.UserAgent, timeout, cfg.MaxOutputBytes))
		case "wikipedia_edit_activity":
			enabled = append(enabled, NewWikipediaEditActivity(cfg.WikipediaURL, cfg.UserAgent, timeout))
		case "web_page":
			enabled = append(enabled, NewWebPage(cfg.UserAgent, timeout, cfg.MaxOutputBytes, robots, limiter))
		case "rag_query":
			if cfg.RAGURL == "" {
				return nil, fmt.Errorf("tool rag_query requires tools.rag_url")
			}
			enabled = append(enabled, NewRAG(cfg.RAGURL, cfg.UserAgent, timeout))
		case "news_search":
			if cfg.NewsAPIKey == "" {
				return nil, fmt.Errorf("tool news_search requires tools.news_api_key")
			}
			enabled = append(enabled, NewNews(cfg.NewsURL, cfg.NewsAPIKey, cfg.UserAgent, timeout))
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
		}
	}

	return NewRegistry(enabled...), nil
}
