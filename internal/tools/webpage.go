package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/worker"
	"golang.org/x/net/html"
)

// WebPage fetches a page and returns its visible text
type WebPage struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int
	robots     *RobotsChecker  // nil disables robots.txt checks
	limiter    *worker.Limiter // per-host, optional
}

// NewWebPage creates the web_page tool
func NewWebPage(userAgent string, timeout time.Duration, maxBytes int, robots *RobotsChecker, limiter *worker.Limiter) *WebPage {
	return &WebPage{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		robots:    robots,
		limiter:   limiter,
	}
}

// Name returns the tool name
func (w *WebPage) Name() string { return "web_page" }

// Description tells the agent when to use the tool
func (w *WebPage) Description() string {
	return "Read the text of a web page, for example a source URL found by another tool. " +
		"Input: an absolute http(s) URL."
}

// Invoke fetches the page
func (w *WebPage) Invoke(ctx context.Context, input string) (string, error) {
	rawURL := strings.TrimSpace(input)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q", rawURL)
	}

	if w.robots != nil {
		allowed, delay, err := w.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", errors.New("disallowed by robots.txt")
		}
		if delay > 0 && w.limiter != nil {
			w.limiter.SetRate(parsed.Host, 1/delay.Seconds(), 1)
		}
	}

	if w.limiter != nil {
		if err := w.limiter.WaitURL(ctx, rawURL); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", requestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var text string
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		text = strings.Join(strings.Fields(string(body)), " ")
	} else {
		doc, err := html.Parse(strings.NewReader(string(body)))
		if err != nil {
			return "", fmt.Errorf("parse HTML: %w", err)
		}
		text = visibleText(doc)
		if title := pageTitle(doc); title != "" {
			text = title + "\n" + text
		}
	}

	if text == "" {
		return "Page has no readable text.", nil
	}
	return truncate(text, w.maxBytes), nil
}

// visibleText extracts text nodes, skipping scripts, styles and navigation
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer", "head", "svg":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(buf.String()), " ")
}

func pageTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := pageTitle(c); t != "" {
			return t
		}
	}
	return ""
}
