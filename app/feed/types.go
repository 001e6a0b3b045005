package feed

import (
	"time"

	"github.com/lysyi3m/rss-sync/app/model"
)

// Document is a fetched feed normalized across RSS, Atom and JSON Feed.
type Document struct {
	Metadata Metadata
	Items    []Item
}

type Metadata struct {
	Title         string
	Link          string
	Description   string
	Author        string
	Category      string
	Image         *model.FeedImage
	LastBuildDate *time.Time
	PubDate       *time.Time
	SkipDays      []string
	SkipHours     []int
	TTL           int // minutes, RSS only
}

type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	Author      string
	Category    string
	PublishedAt *time.Time
	Enclosure   *model.Enclosure
}
