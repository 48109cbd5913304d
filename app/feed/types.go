package feed

import (
	"time"
)

const (
	UntitledFeed    = "Untitled Feed"
	UntitledArticle = "Untitled Article"
)

// Document is a parsed feed in source-format-independent form
type Document struct {
	Title       string
	Description string
	Links       []string
	Entries     []Entry
}

// SiteURL returns the feed's website link, or "" when the feed declares none
func (d *Document) SiteURL() string {
	if len(d.Links) == 0 {
		return ""
	}
	return d.Links[0]
}

type Entry struct {
	ID          string // natural identifier, unique within the feed
	Title       string
	Links       []string
	Summary     string
	Body        string // inline content, empty when the feed ships none
	Authors     []string
	PublishedAt *time.Time
}

func (e *Entry) Link() string {
	if len(e.Links) == 0 {
		return ""
	}
	return e.Links[0]
}

func (e *Entry) Author() string {
	if len(e.Authors) == 0 {
		return ""
	}
	return e.Authors[0]
}
