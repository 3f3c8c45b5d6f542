// Package extract reduces fetched pages to the plain text of their main
// content.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseSelector lists elements that never carry article text.
const noiseSelector = "script, style, noscript, template, header, footer, nav, aside, form, iframe, svg, button, select, [aria-hidden=true], [role=navigation], [role=banner], [role=contentinfo]"

const (
	minLandmarkRunes  = 200
	minParagraphRunes = 25
)

// Text returns the main readable text of a page as a single
// whitespace-normalized string. PDF bodies are read page by page.
func Text(page string) string {
	if strings.TrimSpace(page) == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimLeft(page, " \t\r\n\ufeff"), "%PDF-") {
		text, err := pdfText([]byte(page))
		if err == nil {
			return text
		}
	}

	text, err := mainText(page)
	if err != nil || text == "" {
		return documentText(page)
	}
	return text
}

func mainText(page string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract main content: %v", r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(noiseSelector).Remove()

	if landmark := pickLandmark(doc); landmark != nil {
		return landmark.text, nil
	}
	if best := pickDensestBlock(doc); best != nil && best.text != "" {
		return best.text, nil
	}
	return selectionText(doc.Selection), nil
}

type candidate struct {
	node  *html.Node
	score float64
	text  string
}

// pickLandmark prefers explicit article containers when they hold enough
// text to be more than a teaser.
func pickLandmark(doc *goquery.Document) *candidate {
	var found *candidate
	doc.Find("article, main, [role=main], #content, .post-content, .entry-content, .article-body").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := selectionText(sel)
		if len([]rune(text)) < minLandmarkRunes {
			return true
		}
		found = &candidate{node: sel.Get(0), text: text}
		return false
	})
	return found
}

// pickDensestBlock scores every paragraph and credits its parent fully and
// its grandparent by half; the container with the highest total wins.
func pickDensestBlock(doc *goquery.Document) *candidate {
	scores := map[*html.Node]float64{}
	var order []*html.Node

	credit := func(node *html.Node, points float64) {
		if node == nil || node.Type != html.ElementNode {
			return
		}
		if _, ok := scores[node]; !ok {
			order = append(order, node)
		}
		scores[node] += points
	}

	doc.Find("p, pre, td, blockquote").Each(func(_ int, sel *goquery.Selection) {
		text := selectionText(sel)
		runes := len([]rune(text))
		if runes < minParagraphRunes {
			return
		}
		points := 1 + float64(strings.Count(text, ",")) + minFloat(float64(runes)/100, 3)
		node := sel.Get(0)
		credit(node.Parent, points)
		if node.Parent != nil {
			credit(node.Parent.Parent, points/2)
		}
	})

	var best *candidate
	for _, node := range order {
		score := scores[node] * (1 - linkDensity(node))
		if best == nil || score > best.score {
			best = &candidate{node: node, score: score}
		}
	}
	if best == nil {
		return nil
	}
	best.text = selectionText(goquery.NewDocumentFromNode(best.node).Selection)
	return best
}

func linkDensity(node *html.Node) float64 {
	sel := goquery.NewDocumentFromNode(node).Selection
	total := len([]rune(selectionText(sel)))
	if total == 0 {
		return 0
	}
	linked := 0
	sel.Find("a").Each(func(_ int, a *goquery.Selection) {
		linked += len([]rune(selectionText(a)))
	})
	density := float64(linked) / float64(total)
	if density > 1 {
		return 1
	}
	return density
}

// documentText flattens the whole document, dropping script-like elements.
// It falls back to a tokenizer pass when the parser rejects the input.
func documentText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return tokenizerText(page)
	}
	var builder strings.Builder
	walkText(doc, false, &builder)
	return normalizeSpace(builder.String())
}

func tokenizerText(page string) string {
	tokenizer := html.NewTokenizer(bytes.NewReader([]byte(page)))
	var builder strings.Builder
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeSpace(builder.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if tt == html.StartTagToken && isSkippedElement(string(name)) {
				skipDepth++
			}
			if isBlockElement(string(name)) {
				builder.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedElement(string(name)) && skipDepth > 0 {
				skipDepth--
			}
			if isBlockElement(string(name)) {
				builder.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth == 0 {
				builder.Write(tokenizer.Text())
			}
		}
	}
}

func selectionText(sel *goquery.Selection) string {
	var builder strings.Builder
	for _, node := range sel.Nodes {
		walkText(node, false, &builder)
	}
	return normalizeSpace(builder.String())
}

func walkText(node *html.Node, skip bool, out *strings.Builder) {
	if node == nil {
		return
	}
	block := false
	if node.Type == html.ElementNode {
		if isSkippedElement(node.Data) {
			skip = true
		}
		block = isBlockElement(node.Data)
	}
	if node.Type == html.TextNode && !skip {
		out.WriteString(node.Data)
	}
	if block {
		out.WriteByte(' ')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		walkText(child, skip, out)
	}
	if block {
		out.WriteByte(' ')
	}
}

func isSkippedElement(name string) bool {
	switch strings.ToLower(name) {
	case "script", "style", "noscript", "template", "svg", "iframe", "head":
		return true
	}
	return false
}

func isBlockElement(name string) bool {
	switch strings.ToLower(name) {
	case "p", "div", "section", "article", "main", "li", "ul", "ol", "dl", "dt", "dd",
		"h1", "h2", "h3", "h4", "h5", "h6", "br", "hr", "tr", "td", "th", "table",
		"blockquote", "pre", "figure", "figcaption", "body", "title":
		return true
	}
	return false
}

func normalizeSpace(raw string) string {
	return strings.Join(strings.Fields(strings.ToValidUTF8(raw, "")), " ")
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
