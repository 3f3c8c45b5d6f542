package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

// Metadata is the descriptive header of a page.
type Metadata struct {
	Title       string
	Description string
	SiteName    string
}

// PageMetadata reads OpenGraph tags and falls back to <title> and
// meta description when they are missing.
func PageMetadata(page string) Metadata {
	if strings.TrimSpace(page) == "" {
		return Metadata{}
	}

	var meta Metadata
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(page)); err == nil {
		meta.Title = strings.TrimSpace(og.Title)
		meta.Description = strings.TrimSpace(og.Description)
		meta.SiteName = strings.TrimSpace(og.SiteName)
	}

	if meta.Title == "" || meta.Description == "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		if err == nil {
			if meta.Title == "" {
				meta.Title = normalizeSpace(doc.Find("title").First().Text())
			}
			if meta.Description == "" {
				meta.Description = extractDescription(doc)
			}
		}
	}
	return meta
}

func extractDescription(doc *goquery.Document) string {
	for _, selector := range []string{`meta[name="description"]`, `meta[name="twitter:description"]`} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if trimmed := normalizeSpace(content); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
