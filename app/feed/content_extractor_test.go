package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const articlePage = `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Test Article</title>
	</head>
	<body>
		<header>
			<h1>Site Header</h1>
			<nav>Navigation</nav>
		</header>
		<main>
			<article>
				<h1>Main Article Title</h1>
				<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
				<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
				<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
			</article>
		</main>
		<footer>
			<p>Copyright 2024</p>
		</footer>
	</body>
	</html>
	`

type stubPageFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *stubPageFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func mustDocument(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return doc
}

func TestContentExtractor_Run_Readability(t *testing.T) {
	extractor := NewContentExtractor(&stubPageFetcher{})
	base, _ := url.Parse("https://example.com/articles/1")

	result, ok := extractor.Run([]byte(articlePage), base)

	if !ok {
		t.Fatal("Expected extraction to succeed")
	}
	if !strings.Contains(result, "main content of the article") {
		t.Errorf("Expected extracted content to contain main article text, got: %q", result)
	}
	if result != strings.TrimSpace(result) {
		t.Errorf("Expected extracted content to be trimmed")
	}
}

func TestContentExtractor_Run_EmptyData(t *testing.T) {
	extractor := NewContentExtractor(&stubPageFetcher{})

	for _, data := range [][]byte{nil, {}, []byte("   \n\t")} {
		result, ok := extractor.Run(data, nil)
		if ok || result != "" {
			t.Errorf("Expected no content for %q, got: %q", data, result)
		}
	}
}

func TestContentExtractor_Run_NoContent(t *testing.T) {
	extractor := NewContentExtractor(&stubPageFetcher{})

	result, ok := extractor.Run([]byte(`<html><head><title>x</title></head><body></body></html>`), nil)

	if ok {
		t.Errorf("Expected extraction to fail, got: %q", result)
	}
}

func TestExtractSelectors_FirstLongEnoughMatch(t *testing.T) {
	long := strings.Repeat("Entry content sentence. ", 10)
	doc := mustDocument(t, `<html><body>
		<article>Too short to count.</article>
		<div class="entry-content"><p>`+long+`</p></div>
		<main>`+long+` main</main>
	</body></html>`)

	result, ok := extractSelectors(doc)

	if !ok {
		t.Fatal("Expected selector extraction to succeed")
	}
	if result != strings.TrimSpace(long) {
		t.Errorf("Expected .entry-content text, got: %q", result)
	}
}

func TestExtractSelectors_UsesFirstMatchOnly(t *testing.T) {
	long := strings.Repeat("Second post body text. ", 10)
	doc := mustDocument(t, `<html><body>
		<div class="post">short</div>
		<div class="post">`+long+`</div>
	</body></html>`)

	if result, ok := extractSelectors(doc); ok {
		t.Errorf("Expected only the first .post to be considered, got: %q", result)
	}
}

func TestExtractSelectors_ThresholdIsExclusive(t *testing.T) {
	doc := mustDocument(t, `<html><body><article>`+strings.Repeat("a", 100)+`</article></body></html>`)
	if _, ok := extractSelectors(doc); ok {
		t.Error("Expected 100 bytes of text to be rejected")
	}

	doc = mustDocument(t, `<html><body><article>`+strings.Repeat("a", 101)+`</article></body></html>`)
	if _, ok := extractSelectors(doc); !ok {
		t.Error("Expected 101 bytes of text to be accepted")
	}
}

func TestExtractSelectors_RoleMain(t *testing.T) {
	long := strings.Repeat("Role main text. ", 10)
	doc := mustDocument(t, `<html><body><div role="main">`+long+`</div></body></html>`)

	result, ok := extractSelectors(doc)

	if !ok || result != strings.TrimSpace(long) {
		t.Errorf("Expected [role=main] text, got: %q (ok=%v)", result, ok)
	}
}

func TestExtractParagraphs(t *testing.T) {
	doc := mustDocument(t, `<html><body>
		<p>Short one.</p>
		<p>This paragraph is definitely long enough.</p>
		<div><p>Another paragraph with <b>bold</b> text inside.</p></div>
	</body></html>`)

	result, ok := extractParagraphs(doc)

	if !ok {
		t.Fatal("Expected paragraph extraction to succeed")
	}

	expected := "This paragraph is definitely long enough.\n\nAnother paragraph with  bold  text inside."
	if result != expected {
		t.Errorf("Expected %q, got: %q", expected, result)
	}
}

func TestExtractParagraphs_NoneLongEnough(t *testing.T) {
	doc := mustDocument(t, `<html><body><p>tiny</p><p>also tiny</p></body></html>`)

	if result, ok := extractParagraphs(doc); ok {
		t.Errorf("Expected no paragraphs, got: %q", result)
	}
}

func TestNodeText_JoinsTextNodes(t *testing.T) {
	doc := mustDocument(t, `<html><body><div id="x">Hello<b>world</b><i>again</i></div></body></html>`)

	if got := nodeText(doc.Find("#x")); got != "Hello world again" {
		t.Errorf("Expected 'Hello world again', got: %q", got)
	}
}

func TestContentExtractor_Extract_InvalidURL(t *testing.T) {
	fetcher := &stubPageFetcher{data: []byte(articlePage)}
	extractor := NewContentExtractor(fetcher)

	for _, pageURL := range []string{"", "not a url", "ftp://example.com/file", "https://"} {
		if result, ok := extractor.Extract(context.Background(), pageURL); ok {
			t.Errorf("Expected failure for %q, got: %q", pageURL, result)
		}
	}

	if fetcher.calls != 0 {
		t.Errorf("Expected no fetches for invalid URLs, got: %d", fetcher.calls)
	}
}

func TestContentExtractor_Extract_FetchError(t *testing.T) {
	extractor := NewContentExtractor(&stubPageFetcher{err: errors.New("boom")})

	if result, ok := extractor.Extract(context.Background(), "https://example.com/a"); ok {
		t.Errorf("Expected failure, got: %q", result)
	}
}

func TestContentExtractor_Extract_FromServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(articlePage))
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("\x89PNG"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	extractor := NewContentExtractor(NewFetcher("test-agent", 5*time.Second, nil))

	result, ok := extractor.Extract(context.Background(), server.URL+"/article")
	if !ok || !strings.Contains(result, "main content of the article") {
		t.Errorf("Expected article content, got: %q (ok=%v)", result, ok)
	}

	if result, ok := extractor.Extract(context.Background(), server.URL+"/image"); ok {
		t.Errorf("Expected non-HTML page to be rejected, got: %q", result)
	}

	if result, ok := extractor.Extract(context.Background(), server.URL+"/missing"); ok {
		t.Errorf("Expected 404 to be rejected, got: %q", result)
	}
}

var withoutReadability = []strategy{
	{StrategySelectors, withDocument(extractSelectors)},
	{StrategyParagraphs, withDocument(extractParagraphs)},
}

func TestRunStrategies_SelectorsBeforeParagraphs(t *testing.T) {
	articleText := strings.Repeat("Article element text. ", 10)
	html := `<html><body>
		<article>` + articleText + `</article>
		<p>First qualifying paragraph outside.</p>
		<p>Second qualifying paragraph outside.</p>
	</body></html>`

	result, ok := runStrategies(&page{data: []byte(html)}, withoutReadability)

	if !ok {
		t.Fatal("Expected extraction to succeed")
	}
	if result != strings.TrimSpace(articleText) {
		t.Errorf("Expected <article> text, got: %q", result)
	}
}

func TestRunStrategies_ParagraphsOnly(t *testing.T) {
	html := `<html><body>
		<div><p>  The first paragraph is long enough.  </p></div>
		<p>short</p>
		<p>The second paragraph is also long enough.</p>
	</body></html>`

	result, ok := runStrategies(&page{data: []byte(html)}, withoutReadability)

	if !ok {
		t.Fatal("Expected extraction to succeed")
	}

	expected := "The first paragraph is long enough.\n\nThe second paragraph is also long enough."
	if result != expected {
		t.Errorf("Expected %q, got: %q", expected, result)
	}
}

func TestRunStrategies_FirstSuccessStops(t *testing.T) {
	var called []string
	strategies := []strategy{
		{"one", func(*page) (string, bool) { called = append(called, "one"); return "", false }},
		{"two", func(*page) (string, bool) { called = append(called, "two"); return "found", true }},
		{"three", func(*page) (string, bool) { called = append(called, "three"); return "late", true }},
	}

	result, ok := runStrategies(&page{data: []byte("<html></html>")}, strategies)

	if !ok || result != "found" {
		t.Errorf("Expected 'found', got: %q (ok=%v)", result, ok)
	}
	if strings.Join(called, ",") != "one,two" {
		t.Errorf("Expected strategies one,two to run, got: %v", called)
	}
}
