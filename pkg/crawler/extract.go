package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// hiddenSelectors never contribute visible text.
const hiddenSelectors = "head, script, style, noscript, template, svg"

// extract parses rendered HTML into page text and in-scope links.
func extract(pageURL string, r io.Reader, scope Scope) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{URL: pageURL, Links: extractLinks(doc, base, scope)}

	doc.Find(hiddenSelectors).Remove()
	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	page.Text = visibleText(root)
	return page, nil
}

// visibleText puts every non-empty text node on its own line, so block
// elements stay separated.
func visibleText(s *goquery.Selection) string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					lines = append(lines, t)
				}
			case "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(s)
	return strings.Join(lines, "\n")
}

func extractLinks(doc *goquery.Document, base *url.URL, scope Scope) []string {
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link, ok := scope.Resolve(base, href)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}
