package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"TrendingDigest/internal/domain"
)

// Splice replaces every child of the element whose id is anchorID with the
// parsed concatenation of fragments and serializes the whole document.
// When more than one element carries the id, only the first is replaced.
func Splice(content []byte, anchorID string, fragments []string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	anchor := findAnchor(doc, anchorID)
	if anchor.Length() == 0 {
		return nil, fmt.Errorf("%w: no element with id %q", domain.ErrAnchorNotFound, anchorID)
	}

	anchor.Empty()
	anchor.AppendHtml(strings.Join(fragments, ""))

	var out bytes.Buffer
	for _, node := range doc.Nodes {
		if err := html.Render(&out, node); err != nil {
			return nil, fmt.Errorf("render document: %w", err)
		}
	}
	return out.Bytes(), nil
}

// findAnchor matches on the attribute value directly so ids that are not
// valid CSS identifiers still resolve.
func findAnchor(doc *goquery.Document, anchorID string) *goquery.Selection {
	return doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == anchorID
	}).First()
}
