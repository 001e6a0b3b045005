package feed

import (
	"testing"
	"time"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <lastBuildDate>Mon, 03 Jul 2023 12:00:00 GMT</lastBuildDate>
    <ttl>60</ttl>
    <skipHours><hour>0</hour><hour>1</hour><hour>99</hour></skipHours>
    <skipDays><day>Saturday</day><day>Sunday</day></skipDays>
    <image>
      <url>https://example.com/icon.png</url>
      <title>Test Feed</title>
      <link>https://example.com/home</link>
      <width>32</width>
      <height>16</height>
    </image>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <content:encoded><![CDATA[<p>Full body</p>]]></content:encoded>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <author>test@example.com (Test Author)</author>
      <category>Technology</category>
      <category>Programming</category>
      <enclosure url="https://example.com/ep1.mp3" length="12345" type="audio/mpeg"/>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
    </item>
  </channel>
</rss>`

func TestParseRSS2(t *testing.T) {
	doc, err := NewParser().Run([]byte(testRSS))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	m := doc.Metadata
	if m.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", m.Title)
	}
	if m.Description != "Test Description" {
		t.Errorf("Expected description 'Test Description', got: %s", m.Description)
	}
	if m.TTL != 60 {
		t.Errorf("Expected ttl 60, got: %d", m.TTL)
	}
	if len(m.SkipHours) != 2 || m.SkipHours[0] != 0 || m.SkipHours[1] != 1 {
		t.Errorf("Expected skip hours [0 1], got: %v", m.SkipHours)
	}
	if len(m.SkipDays) != 2 || m.SkipDays[0] != "Saturday" {
		t.Errorf("Expected skip days [Saturday Sunday], got: %v", m.SkipDays)
	}
	if m.LastBuildDate == nil || !m.LastBuildDate.Equal(time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected last build date: %v", m.LastBuildDate)
	}
	if m.Image == nil {
		t.Fatal("Expected image")
	}
	if m.Image.URL != "https://example.com/icon.png" || m.Image.Link != "https://example.com/home" {
		t.Errorf("Unexpected image: %+v", m.Image)
	}
	if m.Image.Width != 32 || m.Image.Height != 16 {
		t.Errorf("Unexpected image size: %dx%d", m.Image.Width, m.Image.Height)
	}

	if len(doc.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(doc.Items))
	}

	item1 := doc.Items[0]
	if item1.GUID != "item-1" {
		t.Errorf("Expected GUID 'item-1', got: %s", item1.GUID)
	}
	if item1.Content != "<p>Full body</p>" {
		t.Errorf("Expected content:encoded body, got: %q", item1.Content)
	}
	if item1.Category != "Technology,Programming" {
		t.Errorf("Expected joined categories, got: %s", item1.Category)
	}
	if item1.PublishedAt == nil || !item1.PublishedAt.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected published date: %v", item1.PublishedAt)
	}
	if item1.Enclosure == nil {
		t.Fatal("Expected enclosure")
	}
	if item1.Enclosure.URL != "https://example.com/ep1.mp3" || item1.Enclosure.Length != 12345 || item1.Enclosure.Type != "audio/mpeg" {
		t.Errorf("Unexpected enclosure: %+v", item1.Enclosure)
	}

	item2 := doc.Items[1]
	if item2.GUID != "https://example.com/item2" {
		t.Errorf("Expected GUID to fall back to link, got: %s", item2.GUID)
	}
	if item2.PublishedAt != nil {
		t.Errorf("Expected no published date, got: %v", item2.PublishedAt)
	}
	if item2.Enclosure != nil {
		t.Errorf("Expected no enclosure, got: %+v", item2.Enclosure)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <author>
    <name>Test Author</name>
  </author>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <content type="html">Test content</content>
  </entry>
</feed>`

	doc, err := NewParser().Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if doc.Metadata.Title != "Test Atom Feed" {
		t.Errorf("Expected title 'Test Atom Feed', got: %s", doc.Metadata.Title)
	}
	if doc.Metadata.Author != "Test Author" {
		t.Errorf("Expected author 'Test Author', got: %s", doc.Metadata.Author)
	}
	if doc.Metadata.TTL != 0 || doc.Metadata.SkipHours != nil {
		t.Errorf("Expected no RSS channel fields, got ttl=%d skipHours=%v", doc.Metadata.TTL, doc.Metadata.SkipHours)
	}

	if len(doc.Items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(doc.Items))
	}

	item := doc.Items[0]
	if item.GUID != "urn:uuid:entry-1" {
		t.Errorf("Expected GUID 'urn:uuid:entry-1', got: %s", item.GUID)
	}
	if item.PublishedAt == nil || !item.PublishedAt.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected published date to fall back to updated, got: %v", item.PublishedAt)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := NewParser().Run([]byte("this is not a feed")); err == nil {
		t.Error("Expected error for invalid document")
	}
}

func TestFormatAuthor(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Jane", "jane@example.com", "jane@example.com (Jane)"},
		{"Jane", "", "Jane"},
		{"", "jane@example.com", "jane@example.com"},
		{" ", " ", ""},
	}

	for _, tt := range tests {
		if got := formatAuthor(tt.name, tt.email); got != tt.want {
			t.Errorf("formatAuthor(%q, %q) = %q, want %q", tt.name, tt.email, got, tt.want)
		}
	}
}
