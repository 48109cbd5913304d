package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses RSS, Atom or JSON Feed data. The format is detected from content.
func (p *Parser) Run(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty feed document", ErrParse)
	}

	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse feed: %w", ErrParse, err)
	}

	doc := &Document{
		Title:       cmp.Or(strings.TrimSpace(parsed.Title), UntitledFeed),
		Description: parsed.Description,
		Links:       uniqueLinks(parsed.Link, parsed.Links),
		Entries:     make([]Entry, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		doc.Entries = append(doc.Entries, p.normalizeItem(item))
	}

	return doc, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		Title:   cmp.Or(strings.TrimSpace(item.Title), UntitledArticle),
		Links:   uniqueLinks(item.Link, item.Links),
		Summary: item.Description,
		Body:    item.Content,
		Authors: p.extractAuthors(item),
	}

	switch {
	case item.PublishedParsed != nil:
		entry.PublishedAt = utc(item.PublishedParsed)
	case item.UpdatedParsed != nil:
		entry.PublishedAt = utc(item.UpdatedParsed)
	}

	entry.ID = cmp.Or(strings.TrimSpace(item.GUID), entry.Link())
	if entry.ID == "" {
		entry.ID = contentHash(strings.TrimSpace(item.Title), entry.PublishedAt, entry.Summary)
	}

	return entry
}

// contentHash derives a stable identifier for entries without GUID or link
func contentHash(title string, publishedAt *time.Time, summary string) string {
	var published string
	if publishedAt != nil {
		published = publishedAt.Format(time.RFC3339Nano)
	}

	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", title, published, summary)))
	return "sha256:" + hex.EncodeToString(hash[:])
}

func uniqueLinks(primary string, others []string) []string {
	links := make([]string, 0, len(others)+1)
	seen := make(map[string]struct{}, len(others)+1)

	for _, link := range append([]string{primary}, others...) {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	return links
}

func (p *Parser) extractAuthors(item *gofeed.Item) []string {
	var authors []string

	if len(item.Authors) > 0 {
		for _, author := range item.Authors {
			if author != nil {
				if s := p.formatAuthor(author.Name, author.Email); s != "" {
					authors = append(authors, s)
				}
			}
		}
	} else if item.Author != nil {
		if s := p.formatAuthor(item.Author.Name, item.Author.Email); s != "" {
			authors = append(authors, s)
		}
	}

	return authors
}

func (p *Parser) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" {
		return name
	}
	return email
}

func utc(t *time.Time) *time.Time {
	u := t.UTC()
	return &u
}
