// Helpers for building feed documents and files on disk in tests.

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// RSSItem describes one <item> in a generated test feed.
type RSSItem struct {
	GUID          string
	Title         string
	PubDate       string // RFC1123Z, e.g. "Mon, 02 Jan 2006 15:04:05 +0000"
	EnclosureURL  string
	EnclosureType string
}

// RSSFeedXML builds a minimal RSS 2.0 document with the given channel
// title, optional artwork URL, and items. Zero-value item fields simply
// omit the corresponding element.
func RSSFeedXML(title, imageURL string, items []RSSItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0"><channel>` + "\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", title)
	if imageURL != "" {
		fmt.Fprintf(&b, "<image><url>%s</url><title>%s</title><link>http://example.com</link></image>\n", imageURL, title)
	}
	for _, it := range items {
		b.WriteString("<item>\n")
		if it.GUID != "" {
			fmt.Fprintf(&b, "<guid>%s</guid>\n", it.GUID)
		}
		if it.Title != "" {
			fmt.Fprintf(&b, "<title>%s</title>\n", it.Title)
		}
		if it.PubDate != "" {
			fmt.Fprintf(&b, "<pubDate>%s</pubDate>\n", it.PubDate)
		}
		if it.EnclosureURL != "" {
			fmt.Fprintf(&b, `<enclosure url="%s" length="1024" type="%s"/>`+"\n", it.EnclosureURL, it.EnclosureType)
		}
		b.WriteString("</item>\n")
	}
	b.WriteString("</channel></rss>\n")
	return b.String()
}

// WriteTestFile writes data under dir and returns the full path.
func WriteTestFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test file %s: %v", path, err)
	}
	return path
}
