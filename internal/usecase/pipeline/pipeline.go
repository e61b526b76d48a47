// Package pipeline implements the content pipeline (C1): turning a
// fetcher's raw output into normalized text plus its content hash, per one
// of the fixed extraction strategies.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"sentrywatch/internal/domain/entity"
)

// MinSafetyNetLength is the threshold below which the orchestrator retries
// with full-body extraction (spec §4.1's safety net).
const MinSafetyNetLength = 50

var whitespaceRun = regexp.MustCompile(`\s+`)

// FetchResult is the subset of a fetcher's output the pipeline consumes.
type FetchResult struct {
	FinalURL string
	HTML     string
	Text     string
}

// Extract runs the chosen strategy over a fetch result and returns raw
// (pre-normalization) text. It returns entity.KindExtract-flavored errors on
// failure; callers wrap with entity.NewCheckError.
func Extract(fr FetchResult, strategy entity.ExtractionStrategy) (string, error) {
	switch strategy.Kind {
	case entity.StrategyFullBody:
		return extractFullBody(fr)
	case entity.StrategyAuto:
		return extractAuto(fr)
	case entity.StrategySelector:
		return extractSelector(fr, strategy.Selector)
	case entity.StrategyStructuredData:
		return extractStructuredData(fr, strategy.Types)
	case entity.StrategyRSSItems:
		return extractRSSItems(fr)
	default:
		return "", fmt.Errorf("unknown extraction strategy %q", strategy.Kind)
	}
}

// extractFullBody returns the page's entire body text, tags stripped.
func extractFullBody(fr FetchResult) (string, error) {
	if fr.HTML == "" {
		return fr.Text, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fr.HTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return doc.Find("body").Text(), nil
}

// extractAuto applies the main-content heuristic via go-readability. It
// returns the article text, or the article content with its markup stripped
// when the text is empty, and fails when Readability finds no content (the
// orchestrator's full-body safety net then takes over).
func extractAuto(fr FetchResult) (string, error) {
	if fr.HTML == "" {
		return fr.Text, nil
	}
	var u *url.URL
	if fr.FinalURL != "" {
		u, _ = url.Parse(fr.FinalURL) // readability tolerates a nil base URL
	}
	article, err := readability.FromReader(strings.NewReader(fr.HTML), u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	if article.TextContent != "" {
		return article.TextContent, nil
	}
	if article.Content != "" {
		return SanitizeHTML(article.Content), nil
	}
	return "", fmt.Errorf("readability found no content")
}

// extractSelector joins every element matched by a CSS-like selector with
// single spaces.
func extractSelector(fr FetchResult, selector string) (string, error) {
	if selector == "" {
		return "", fmt.Errorf("selector strategy requires a non-empty selector")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fr.HTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", fmt.Errorf("selector %q matched no elements", selector)
	}
	parts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " "), nil
}

// extractStructuredData pulls every embedded JSON-LD record from the page,
// optionally filtered by its "@type", and joins their JSON forms.
func extractStructuredData(fr FetchResult, types []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fr.HTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	wantType := make(map[string]bool, len(types))
	for _, t := range types {
		wantType[t] = true
	}

	var records []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := s.Text()
		if len(wantType) > 0 && !jsonLDMatchesType(raw, wantType) {
			return
		}
		records = append(records, strings.TrimSpace(raw))
	})

	if len(records) == 0 {
		return "", fmt.Errorf("no matching structured-data records found")
	}
	return strings.Join(records, "\n"), nil
}

func jsonLDMatchesType(raw string, wantType map[string]bool) bool {
	var parsed struct {
		Type string `json:"@type"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return false
	}
	return wantType[parsed.Type]
}

// extractRSSItems parses a feed (raw HTML/XML carries the feed body for the
// rss engine) and concatenates each entry as "title \n link \n summary".
func extractRSSItems(fr FetchResult) (string, error) {
	body := fr.HTML
	if body == "" {
		body = fr.Text
	}
	parser := gofeed.NewParser()
	feed, err := parser.ParseString(body)
	if err != nil {
		return "", fmt.Errorf("parse feed: %w", err)
	}

	parts := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		parts = append(parts, fmt.Sprintf("%s\n%s\n%s", item.Title, item.Link, item.Description))
	}
	return strings.Join(parts, "\n\n"), nil
}

var boilerplateSanitizer = bluemonday.StripTagsPolicy()

// StripBoilerplate removes each configured substring from text. It is
// applied during normalization, after whitespace collapsing, so substrings
// should already be whitespace-normalized by the caller's configuration.
func StripBoilerplate(text string, substrings []string) string {
	for _, s := range substrings {
		if s == "" {
			continue
		}
		text = strings.ReplaceAll(text, s, "")
	}
	return text
}

// SanitizeHTML strips all markup, used ahead of normalization when a
// strategy's raw output may still carry tags (defense in depth; extraction
// strategies above already return text, not markup).
func SanitizeHTML(html string) string {
	return boilerplateSanitizer.Sanitize(html)
}

// Hash computes the content hash over the final normalized bytes: a
// SHA-256 digest, hex-encoded, lowercase, full width used for equality.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
