// Package scrape implements the best-effort HTML fallback tier: when a
// network's structured API is unavailable, adapters extract what they can
// from the operator dashboard instead. Everything here is allowed to fail;
// the connector treats any error as a cue to move on to synthesis.
package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"resty.dev/v3"
)

// Node aliases the parsed HTML node type so callers do not need to import
// the html package for traversal.
type Node = html.Node

// Scraper fetches and parses dashboard pages. It owns its own HTTP client
// and timeout, independent of the live tier's.
type Scraper struct {
	client *resty.Client
}

// New creates a Scraper. headless is accepted for configuration parity but
// the scraper always performs a static fetch.
func New(timeout time.Duration, headless bool) *Scraper {
	client := resty.New().
		SetHeader("Accept", "text/html").
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; ai-nodes/1.0)")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	_ = headless
	return &Scraper{client: client}
}

// Document fetches url and parses it into an HTML tree.
func (s *Scraper) Document(ctx context.Context, url string) (*html.Node, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode())
	}

	doc, err := html.Parse(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return doc, nil
}

// Close releases the underlying HTTP client.
func (s *Scraper) Close() {
	s.client.Close()
}

// FindByID returns the first element with the given id attribute, or nil.
func FindByID(n *html.Node, id string) *html.Node {
	return find(n, func(node *html.Node) bool {
		return attr(node, "id") == id
	})
}

// FindByClass returns the first element carrying the given class, or nil.
func FindByClass(n *html.Node, class string) *html.Node {
	return find(n, func(node *html.Node) bool {
		for _, c := range strings.Fields(attr(node, "class")) {
			if c == class {
				return true
			}
		}
		return false
	})
}

// Text returns the concatenated text content of n, whitespace-collapsed.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// Number parses a scraped figure, tolerating currency symbols, commas,
// percent signs and surrounding text like "$1,234.56 / day".
func Number(s string) (float64, error) {
	start := -1
	end := -1
	for i, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			if start == -1 {
				start = i
			}
			end = i + 1
		} else if r == ',' && start != -1 {
			end = i + 1
		} else if start != -1 {
			break
		}
	}
	if start == -1 {
		return 0, fmt.Errorf("no numeric value in %q", s)
	}

	cleaned := strings.ReplaceAll(s[start:end], ",", "")
	cleaned = strings.TrimSuffix(cleaned, ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	return v, nil
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
