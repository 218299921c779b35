package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// nonContent lists elements removed before text extraction.
const nonContent = "script, style, nav, footer, header, noscript, svg, iframe, template"

// Normaliser handles HTML pages fetched by the web connector.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{normalisers.MIMEHTML, "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips non-content markup and returns the page text as one
// segment: every text node on its own line, lines trimmed, blank lines dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w: %v", domain.ErrInvalidInput, err)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	page.Find(nonContent).Remove()

	root := page.Find("body")
	if root.Length() == 0 {
		root = page.Selection
	}

	doc := normalisers.NewDocument(raw, title, "html", normalisers.SingleSegment(ExtractText(root)))
	if title == "" {
		doc.Title = raw.Source
	}
	return &driven.NormaliseResult{Document: doc}, nil
}

// ExtractText returns the visible text under sel, one text node per line,
// with surrounding whitespace trimmed and empty lines removed.
func ExtractText(sel *goquery.Selection) string {
	var lines []string
	var walk func(*xhtml.Node)
	walk = func(node *xhtml.Node) {
		if node.Type == xhtml.TextNode {
			for _, line := range strings.Split(node.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
			return
		}
		if node.Type == xhtml.ElementNode && node.Data == "head" {
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return strings.Join(lines, "\n")
}
