// This file turns a cached feed document into channel metadata and a full
// list of episode records. Parsing is delegated to gofeed, which handles
// both RSS and Atom; this layer decides which items are usable and derives
// the stable local filename for each enclosure.

package feed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item is a single usable entry from a feed's item list.
type Item struct {
	GUID         string
	Title        string
	Date         string // feed-native date string, kept verbatim
	PublishedAt  *time.Time
	EnclosureURL string
	FileName     string // {guid}.{ext}, ext mapped from the enclosure MIME type
}

// Document is the parsed form of one feed document.
type Document struct {
	Title    string
	ImageURL string
	Items    []Item
	Warnings []string // per-item skips, reported but never fatal
}

// ParseError indicates the document itself could not be parsed. The sync
// orchestrator catches it per feed and continues with the others.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// extensionByMIME maps an enclosure's declared audio MIME type to the
// local file extension. Anything unrecognized or absent falls back to mp3.
var extensionByMIME = map[string]string{
	"audio/aac":  "aac",
	"audio/mpeg": "mp3",
	"audio/ogg":  "oga",
	"audio/opus": "opus",
	"audio/wav":  "wav",
	"audio/webm": "weba",
}

const defaultExtension = "mp3"

var unsafeFilenameChars = regexp.MustCompile(`[\x00\\/:*?"<>|]`)

// SanitizeFilename strips characters that are unsafe in a filename. GUIDs
// are frequently URLs, so this runs over every derived name.
func SanitizeFilename(name string) string {
	safe := unsafeFilenameChars.ReplaceAllString(name, "-")
	for strings.HasPrefix(safe, ".") || strings.HasPrefix(safe, "-") {
		safe = safe[1:]
	}
	if safe == "" {
		safe = "untitled"
	}
	return safe
}

// EpisodeFileName derives the stable local filename for an enclosure.
func EpisodeFileName(guid, mimeType string) string {
	ext, ok := extensionByMIME[mimeType]
	if !ok {
		ext = defaultExtension
	}
	return fmt.Sprintf("%s.%s", SanitizeFilename(guid), ext)
}

// Parse consumes a feed document's full text and produces the channel
// metadata plus every usable episode record. Items without a guid or
// without an enclosure URL are skipped with a warning; a document that
// cannot be parsed at all fails with a *ParseError.
func Parse(data []byte) (*Document, error) {
	parsed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	doc := &Document{Title: parsed.Title}
	if parsed.Image != nil && parsed.Image.URL != "" {
		doc.ImageURL = parsed.Image.URL
	} else if parsed.ITunesExt != nil && parsed.ITunesExt.Image != "" {
		doc.ImageURL = parsed.ITunesExt.Image
	}

	for _, item := range parsed.Items {
		if item.GUID == "" {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("skipping item %q: no guid", item.Title))
			continue
		}

		var enclosure *gofeed.Enclosure
		for _, e := range item.Enclosures {
			if e != nil && e.URL != "" {
				enclosure = e
				break
			}
		}
		if enclosure == nil {
			// Nothing to download without an enclosure URL.
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("skipping item %q: no enclosure url", item.GUID))
			continue
		}

		doc.Items = append(doc.Items, Item{
			GUID:         item.GUID,
			Title:        item.Title,
			Date:         item.Published,
			PublishedAt:  item.PublishedParsed,
			EnclosureURL: enclosure.URL,
			FileName:     EpisodeFileName(item.GUID, enclosure.Type),
		})
	}

	return doc, nil
}
