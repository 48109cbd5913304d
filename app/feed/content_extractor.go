package feed

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/lysyi3m/rss-reader/app/metrics"
)

const (
	StrategyReadability = "readability"
	StrategySelectors   = "selectors"
	StrategyParagraphs  = "paragraphs"
	StrategyNone        = "none"

	minSelectorTextLen  = 100
	minParagraphTextLen = 20
)

// Selectors tried in order when readability finds nothing.
var contentSelectors = []string{
	"article",
	".post-content",
	".entry-content",
	".content",
	"main",
	".article-body",
	"#content",
	".post-body",
	".article-content",
	".post",
	`[role="main"]`,
}

type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// ContentExtractor recovers readable article text from a web page
type ContentExtractor struct {
	fetcher PageFetcher
}

func NewContentExtractor(fetcher PageFetcher) *ContentExtractor {
	return &ContentExtractor{fetcher: fetcher}
}

// Extract fetches pageURL and runs the strategy chain on it.
// Failures are logged and reported as ("", false).
func (e *ContentExtractor) Extract(ctx context.Context, pageURL string) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		slog.Debug("Skipping extraction for invalid URL", "url", pageURL)
		metrics.RecordExtraction(StrategyNone)
		return "", false
	}

	data, err := e.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		slog.Debug("Failed to fetch article page", "url", pageURL, "error", err)
		metrics.RecordExtraction(StrategyNone)
		return "", false
	}

	content, ok := e.Run(data, base)
	if !ok {
		slog.Debug("No content extracted", "url", pageURL)
	}
	return content, ok
}

// Run applies readability, then content selectors, then paragraph
// collection to already-fetched HTML. The first non-empty result wins.
func (e *ContentExtractor) Run(data []byte, base *url.URL) (string, bool) {
	return runStrategies(&page{data: data, base: base}, defaultStrategies)
}

type page struct {
	data []byte
	base *url.URL

	doc    *goquery.Document
	docErr error
	parsed bool
}

// document parses the page once for the selector-based strategies
func (p *page) document() (*goquery.Document, error) {
	if !p.parsed {
		p.doc, p.docErr = goquery.NewDocumentFromReader(bytes.NewReader(p.data))
		p.parsed = true
	}
	return p.doc, p.docErr
}

type strategy struct {
	name string
	run  func(*page) (string, bool)
}

var defaultStrategies = []strategy{
	{StrategyReadability, extractReadability},
	{StrategySelectors, withDocument(extractSelectors)},
	{StrategyParagraphs, withDocument(extractParagraphs)},
}

func runStrategies(p *page, strategies []strategy) (string, bool) {
	if len(bytes.TrimSpace(p.data)) == 0 {
		metrics.RecordExtraction(StrategyNone)
		return "", false
	}

	for _, s := range strategies {
		if text, ok := s.run(p); ok {
			slog.Debug("Content extracted", "strategy", s.name, "content_length", len(text))
			metrics.RecordExtraction(s.name)
			return text, true
		}
	}

	metrics.RecordExtraction(StrategyNone)
	return "", false
}

func withDocument(fn func(*goquery.Document) (string, bool)) func(*page) (string, bool) {
	return func(p *page) (string, bool) {
		doc, err := p.document()
		if err != nil {
			slog.Debug("Failed to parse HTML", "error", err)
			return "", false
		}
		return fn(doc)
	}
}

func extractReadability(p *page) (string, bool) {
	article, err := readability.FromReader(bytes.NewReader(p.data), p.base)
	if err != nil {
		slog.Debug("Readability failed", "error", err)
		return "", false
	}

	text := strings.TrimSpace(article.TextContent)
	return text, text != ""
}

func extractSelectors(doc *goquery.Document) (string, bool) {
	for _, selector := range contentSelectors {
		match := doc.Find(selector).First()
		if match.Length() == 0 {
			continue
		}

		text := nodeText(match)
		if len(text) > minSelectorTextLen {
			return text, true
		}
	}

	return "", false
}

func extractParagraphs(doc *goquery.Document) (string, bool) {
	var paragraphs []string

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := nodeText(s); len(text) > minParagraphTextLen {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		return "", false
	}
	return strings.Join(paragraphs, "\n\n"), true
}

// nodeText joins every descendant text node with a single space
func nodeText(s *goquery.Selection) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range s.Nodes {
		walk(n)
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}
