package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentrywatch/internal/domain/entity"
)

func TestExtractFullBody(t *testing.T) {
	fr := FetchResult{HTML: "<html><body>hello <b>world</b></body></html>"}
	text, err := Extract(fr, entity.ExtractionStrategy{Kind: entity.StrategyFullBody})
	require.NoError(t, err)
	assert.Contains(t, text, "hello")
	assert.Contains(t, text, "world")
}

func TestExtractSelector(t *testing.T) {
	fr := FetchResult{HTML: `<html><body><div class="a">one</div><div class="b">two</div></body></html>`}
	text, err := Extract(fr, entity.ExtractionStrategy{Kind: entity.StrategySelector, Selector: ".a"})
	require.NoError(t, err)
	assert.Equal(t, "one", text)
}

func TestExtractSelectorNoMatch(t *testing.T) {
	fr := FetchResult{HTML: `<html><body></body></html>`}
	_, err := Extract(fr, entity.ExtractionStrategy{Kind: entity.StrategySelector, Selector: ".missing"})
	assert.Error(t, err)
}

func TestExtractStructuredData(t *testing.T) {
	html := `<html><head><script type="application/ld+json">{"@type":"Article","headline":"hi"}</script></head></html>`
	fr := FetchResult{HTML: html}
	text, err := Extract(fr, entity.ExtractionStrategy{Kind: entity.StrategyStructuredData, Types: []string{"Article"}})
	require.NoError(t, err)
	assert.Contains(t, text, "headline")
}

func TestExtractStructuredDataTypeMismatch(t *testing.T) {
	html := `<html><head><script type="application/ld+json">{"@type":"Product"}</script></head></html>`
	fr := FetchResult{HTML: html}
	_, err := Extract(fr, entity.ExtractionStrategy{Kind: entity.StrategyStructuredData, Types: []string{"Article"}})
	assert.Error(t, err)
}

func TestExtractRSSItems(t *testing.T) {
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><item>
		<title>T1</title><link>http://x/1</link><description>D1</description>
	</item></channel></rss>`
	fr := FetchResult{HTML: feed}
	text, err := Extract(fr, entity.ExtractionStrategy{Kind: entity.StrategyRSSItems})
	require.NoError(t, err)
	assert.Contains(t, text, "T1")
	assert.Contains(t, text, "http://x/1")
	assert.Contains(t, text, "D1")
}

func TestNormalizeCollapsesWhitespaceAndLineEndings(t *testing.T) {
	in := "hello\r\n\tworld   again"
	out := Normalize(in, entity.NormalizationOptions{})
	assert.Equal(t, "hello world again", out)
}

func TestNormalizeLowercase(t *testing.T) {
	out := Normalize("HELLO World", entity.NormalizationOptions{Lowercase: true})
	assert.Equal(t, "hello world", out)
}

func TestNormalizeBoilerplateStrip(t *testing.T) {
	out := Normalize("hello UNSUBSCRIBE world", entity.NormalizationOptions{BoilerplateStrip: []string{"UNSUBSCRIBE"}})
	assert.Equal(t, "hello world", out)
}

func TestHashStableAndHex(t *testing.T) {
	h1 := Hash("same text")
	h2 := Hash("same text")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	h3 := Hash("different text")
	assert.NotEqual(t, h1, h3)
}
