package factcheck

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// SourceType is the kind of publisher behind a piece of evidence. The values
// match the source_types vocabulary of a sourcing strategy.
type SourceType string

const (
	SourceGovernment SourceType = "government"
	SourceAcademic   SourceType = "academic"
	SourceNews       SourceType = "news"
	SourceReference  SourceType = "reference"
	SourceInternal   SourceType = "internal"
	SourceOther      SourceType = "other"
)

var defaultSourceDomains = map[string]SourceType{
	"wikipedia.org":     SourceReference,
	"britannica.com":    SourceReference,
	"doi.org":           SourceAcademic,
	"arxiv.org":         SourceAcademic,
	"jstor.org":         SourceAcademic,
	"nature.com":        SourceAcademic,
	"sciencedirect.com": SourceAcademic,
	"reuters.com":       SourceNews,
	"apnews.com":        SourceNews,
	"bbc.co.uk":         SourceNews,
	"bbc.com":           SourceNews,
	"bloomberg.com":     SourceNews,
	"ft.com":            SourceNews,
	"straitstimes.com":  SourceNews,
	"cnbc.com":          SourceNews,
	"worldbank.org":     SourceGovernment,
	"imf.org":           SourceGovernment,
	"oecd.org":          SourceGovernment,
	"un.org":            SourceGovernment,
	"europa.eu":         SourceGovernment,
}

// Tools whose output has a known source type regardless of URLs
var toolSourceTypes = map[string]SourceType{
	"wikipedia_search":  SourceReference,
	"wikipedia_summary": SourceReference,
	"news_search":       SourceNews,
	"rag_query":         SourceInternal,
}

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>()\[\]]+`)

// SourceClassifier maps evidence URLs to source types
type SourceClassifier struct {
	domains map[string]SourceType
}

// NewSourceClassifier creates a classifier. overrides maps a domain to a
// source type name and takes precedence over the built-in table.
func NewSourceClassifier(overrides map[string]string) *SourceClassifier {
	c := &SourceClassifier{domains: make(map[string]SourceType, len(defaultSourceDomains)+len(overrides))}
	for domain, st := range defaultSourceDomains {
		c.domains[domain] = st
	}
	for domain, st := range overrides {
		c.domains[strings.ToLower(strings.TrimPrefix(domain, "www."))] = parseSourceType(st)
	}
	return c
}

// Classify returns the source type of rawURL
func (c *SourceClassifier) Classify(rawURL string) SourceType {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return SourceOther
	}
	host := strings.ToLower(parsed.Hostname())

	// Exact or parent domain match (en.wikipedia.org matches wikipedia.org)
	for h := host; h != ""; {
		if st, ok := c.domains[h]; ok {
			return st
		}
		i := strings.Index(h, ".")
		if i < 0 {
			break
		}
		h = h[i+1:]
	}

	switch {
	case strings.HasSuffix(host, ".gov") || strings.Contains(host, ".gov.") || strings.HasSuffix(host, ".mil"):
		return SourceGovernment
	case strings.HasSuffix(host, ".edu") || strings.Contains(host, ".edu.") || strings.Contains(host, ".ac."):
		return SourceAcademic
	}
	return SourceOther
}

// SourceCoverage summarizes which kinds of sources an evidence log consulted
type SourceCoverage struct {
	Counts  map[SourceType]int
	Sources int      // distinct successful sources
	Needed  int      // from the sourcing strategy
	Missing []string // requested source types never consulted
}

// Coverage classifies every successful tool call in log and compares the
// result with the sub-claim's sourcing strategy
func (c *SourceClassifier) Coverage(strategy model.SourcingStrategy, log model.EvidenceLog) SourceCoverage {
	cov := SourceCoverage{Counts: make(map[SourceType]int), Needed: strategy.MinSources}
	seen := make(map[string]bool)

	add := func(key string, st SourceType) {
		if seen[key] {
			return
		}
		seen[key] = true
		cov.Counts[st]++
		cov.Sources++
	}

	for _, item := range log {
		if item.Failed() {
			continue
		}
		urls := urlPattern.FindAllString(item.Input+" "+item.Output, -1)
		for _, u := range urls {
			add(strings.TrimRight(u, ".,;:"), c.Classify(strings.TrimRight(u, ".,;:")))
		}
		if len(urls) == 0 {
			st, ok := toolSourceTypes[item.Tool]
			if !ok {
				st = SourceOther
			}
			add(item.Tool+"\x00"+item.Input, st)
		}
	}

	for _, want := range strategy.SourceTypes {
		if cov.Counts[parseSourceType(want)] == 0 {
			cov.Missing = append(cov.Missing, strings.ToLower(want))
		}
	}
	return cov
}

// Sufficient reports whether the log met the strategy's source count
func (cov SourceCoverage) Sufficient() bool {
	return cov.Sources >= cov.Needed
}

// String renders the coverage for the synthesis prompt
func (cov SourceCoverage) String() string {
	if cov.Sources == 0 {
		return fmt.Sprintf("no usable sources (%d needed)", cov.Needed)
	}

	types := make([]string, 0, len(cov.Counts))
	for st := range cov.Counts {
		types = append(types, string(st))
	}
	sort.Strings(types)

	parts := make([]string, len(types))
	for i, st := range types {
		parts[i] = fmt.Sprintf("%s %d", st, cov.Counts[SourceType(st)])
	}

	out := fmt.Sprintf("%d of %d sources (%s)", cov.Sources, cov.Needed, strings.Join(parts, ", "))
	if len(cov.Missing) > 0 {
		out += "; not consulted: " + strings.Join(cov.Missing, ", ")
	}
	return out
}

func parseSourceType(s string) SourceType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "government", "gov", "official", "regulatory":
		return SourceGovernment
	case "academic", "research", "journal", "scholarly":
		return SourceAcademic
	case "news", "media", "press":
		return SourceNews
	case "reference", "encyclopedia", "wikipedia":
		return SourceReference
	case "internal", "rag", "company":
		return SourceInternal
	default:
		return SourceOther
	}
}
