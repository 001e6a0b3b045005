package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/lysyi3m/rss-sync/app/model"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// rssTranslator keeps the RSS channel fields the universal feed drops.
type rssTranslator struct {
	gofeed.DefaultRSSTranslator
	channel *rss.Feed
}

func (t *rssTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	if rssFeed, ok := feed.(*rss.Feed); ok {
		t.channel = rssFeed
	}
	return t.DefaultRSSTranslator.Translate(feed)
}

func (p *Parser) Run(data []byte) (*Document, error) {
	translator := &rssTranslator{}
	gofeedParser := gofeed.NewParser()
	gofeedParser.RSSTranslator = translator

	parsed, err := gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	doc := &Document{
		Metadata: Metadata{
			Title:         parsed.Title,
			Link:          parsed.Link,
			Description:   parsed.Description,
			Author:        formatPerson(parsed.Author, parsed.Authors),
			Category:      strings.Join(parsed.Categories, ","),
			LastBuildDate: parsed.UpdatedParsed,
			PubDate:       parsed.PublishedParsed,
		},
	}

	if parsed.Image != nil && parsed.Image.URL != "" {
		doc.Metadata.Image = &model.FeedImage{
			URL:   parsed.Image.URL,
			Title: parsed.Image.Title,
			Link:  parsed.Link,
		}
	}

	if ch := translator.channel; ch != nil {
		applyChannel(&doc.Metadata, ch)
	}

	doc.Items = make([]Item, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		doc.Items = append(doc.Items, p.normalizeItem(item))
	}

	return doc, nil
}

func applyChannel(m *Metadata, ch *rss.Feed) {
	if ttl, err := strconv.Atoi(strings.TrimSpace(ch.TTL)); err == nil && ttl > 0 {
		m.TTL = ttl
	}

	for _, day := range ch.SkipDays {
		if day = strings.TrimSpace(day); day != "" {
			m.SkipDays = append(m.SkipDays, day)
		}
	}

	for _, h := range ch.SkipHours {
		if hour, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && hour >= 0 && hour <= 23 {
			m.SkipHours = append(m.SkipHours, hour)
		}
	}

	if ch.Image != nil && m.Image != nil {
		m.Image.Link = cmp.Or(ch.Image.Link, m.Image.Link)
		m.Image.Description = ch.Image.Description
		m.Image.Width, _ = strconv.Atoi(ch.Image.Width)
		m.Image.Height, _ = strconv.Atoi(ch.Image.Height)
	}
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		GUID:        cmp.Or(item.GUID, item.Link),
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     item.Content,
		Author:      formatPerson(item.Author, item.Authors),
		Category:    strings.Join(item.Categories, ","),
		PublishedAt: item.PublishedParsed,
	}

	if normalized.PublishedAt == nil {
		normalized.PublishedAt = item.UpdatedParsed
	}

	// RSS 2.0 allows a single enclosure per item
	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil && item.Enclosures[0].URL != "" {
		enclosure := item.Enclosures[0]
		normalized.Enclosure = &model.Enclosure{
			URL:  enclosure.URL,
			Type: enclosure.Type,
		}
		if enclosure.Length != "" {
			if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
				normalized.Enclosure.Length = length
			}
		}
	}

	return normalized
}

func formatPerson(primary *gofeed.Person, all []*gofeed.Person) string {
	people := all
	if len(people) == 0 && primary != nil {
		people = []*gofeed.Person{primary}
	}

	var names []string
	for _, person := range people {
		if person == nil {
			continue
		}
		if s := formatAuthor(person.Name, person.Email); s != "" {
			names = append(names, s)
		}
	}

	return strings.Join(names, ", ")
}

func formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}
