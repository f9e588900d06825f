package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WikipediaEditActivity reports recent edit activity on a Wikipedia page.
// Pages in an edit war are weak evidence for contested facts.
type WikipediaEditActivity struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	window     time.Duration
	now        func() time.Time
}

type wikiRevision struct {
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Comment   string `json:"comment"`
}

type wikiRevisionsResponse struct {
	Query struct {
		Pages map[string]struct {
			Title     string         `json:"title"`
			Missing   *string        `json:"missing"`
			Revisions []wikiRevision `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// EditActivity summarizes a page's recent revision history
type EditActivity struct {
	Title         string
	RecentEdits   int
	Reverts       int
	UniqueEditors int
	EditsPerDay   float64
	LastEdit      time.Time
	Severity      string // none, low, medium, high
}

// NewWikipediaEditActivity creates the wikipedia_edit_activity tool
func NewWikipediaEditActivity(baseURL, userAgent string, timeout time.Duration) *WikipediaEditActivity {
	return &WikipediaEditActivity{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		window:     30 * 24 * time.Hour,
		now:        time.Now,
	}
}

// Name returns the tool name
func (w *WikipediaEditActivity) Name() string { return "wikipedia_edit_activity" }

// Description tells the agent when to use the tool
func (w *WikipediaEditActivity) Description() string {
	return "Check whether a Wikipedia page is being actively disputed (recent edits, reverts, editors). " +
		"Use it before relying on a Wikipedia page for a contested fact. " +
		"Input: an exact Wikipedia page title."
}

// Invoke fetches the last 100 revisions of the page and reports its activity
func (w *WikipediaEditActivity) Invoke(ctx context.Context, input string) (string, error) {
	title := strings.TrimSpace(input)
	if title == "" {
		return "", fmt.Errorf("empty page title")
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "revisions")
	params.Set("titles", title)
	params.Set("rvlimit", "100")
	params.Set("rvprop", "timestamp|user|comment")
	params.Set("format", "json")

	var resp wikiRevisionsResponse
	if err := getJSON(ctx, w.httpClient, w.baseURL+"/w/api.php?"+params.Encode(), w.userAgent, &resp); err != nil {
		return "", err
	}

	for _, page := range resp.Query.Pages {
		if page.Missing != nil {
			return "Page does not exist.", nil
		}
		activity := analyzeRevisions(page.Revisions, w.now(), w.window)
		activity.Title = page.Title
		return activity.String(), nil
	}
	return "Page does not exist.", nil
}

// analyzeRevisions counts edits, reverts and editors within window of now
func analyzeRevisions(revisions []wikiRevision, now time.Time, window time.Duration) EditActivity {
	var a EditActivity
	since := now.Add(-window)
	editors := make(map[string]bool)
	var oldest time.Time

	for _, rev := range revisions {
		t, err := time.Parse(time.RFC3339, rev.Timestamp)
		if err != nil || t.Before(since) {
			continue
		}
		a.RecentEdits++
		editors[rev.User] = true
		if t.After(a.LastEdit) {
			a.LastEdit = t
		}
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
		if isRevert(rev.Comment) {
			a.Reverts++
		}
	}
	a.UniqueEditors = len(editors)

	if a.RecentEdits > 0 {
		days := now.Sub(oldest).Hours() / 24
		if days < 1 {
			days = 1
		}
		a.EditsPerDay = float64(a.RecentEdits) / days
	}

	switch {
	case (a.RecentEdits > 10 && a.Reverts > 3) || a.EditsPerDay > 5:
		a.Severity = "high"
	case (a.RecentEdits > 5 && a.Reverts > 1) || a.EditsPerDay > 2:
		a.Severity = "medium"
	case a.Reverts > 0:
		a.Severity = "low"
	default:
		a.Severity = "none"
	}
	return a
}

func isRevert(comment string) bool {
	c := strings.ToLower(comment)
	return strings.Contains(c, "revert") || strings.HasPrefix(c, "rv ") || strings.Contains(c, " rv ") ||
		strings.Contains(c, "undo") || strings.Contains(c, "undid")
}

// String renders the activity for the agent
func (a EditActivity) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Page: %s\n", a.Title)
	fmt.Fprintf(&sb, "Edits in the last 30 days: %d\n", a.RecentEdits)
	fmt.Fprintf(&sb, "Reverts: %d\n", a.Reverts)
	fmt.Fprintf(&sb, "Unique editors: %d\n", a.UniqueEditors)
	fmt.Fprintf(&sb, "Edits per day: %.2f\n", a.EditsPerDay)
	if !a.LastEdit.IsZero() {
		fmt.Fprintf(&sb, "Last edit: %s\n", a.LastEdit.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "Conflict level: %s", a.Severity)
	if a.Severity == "medium" || a.Severity == "high" {
		sb.WriteString("\nThe page is actively disputed; corroborate its claims with other sources.")
	}
	return sb.String()
}
