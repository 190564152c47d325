// Package detector reads passive payment metadata from a hosting page: the
// declarative lightning recipient tag and the page's own identity (host,
// display name, icon). It produces at most one recipient per page and fails
// closed on malformed recipient declarations.
package detector

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// PageData is what a single scan yields: the origin descriptor, and zero or
// one recipient descriptor.
type PageData struct {
	Origin    lnbridge.Origin
	Recipient *lnbridge.Recipient
}

type pageMeta struct {
	lightning  string
	hasTag     bool
	title      string
	ogTitle    string
	ogSiteName string
	icon       string
}

// Detect scans an HTML document for the lightning meta tag and the page
// identity. An absent tag is a no-op (nil Recipient); a present but invalid
// tag fails closed with lnbridge.ErrInvalidRecipient.
func Detect(pageURL string, r io.Reader) (*PageData, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("page url %q has no host", pageURL)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var meta pageMeta
	scan(doc, &meta)

	data := &PageData{
		Origin: lnbridge.Origin{
			Host: u.Host,
			Name: displayName(&meta, u.Host),
			Icon: resolveIcon(u, meta.icon),
		},
	}

	if !meta.hasTag {
		return data, nil
	}

	recipient := lnbridge.ParseRecipient(meta.lightning)
	if err := recipient.Validate(); err != nil {
		return nil, err
	}
	data.Recipient = recipient
	return data, nil
}

func scan(n *html.Node, meta *pageMeta) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			name := strings.ToLower(attr(n, "name"))
			property := strings.ToLower(attr(n, "property"))
			content := attr(n, "content")
			switch {
			case name == "lightning" && !meta.hasTag:
				meta.lightning = content
				meta.hasTag = true
			case property == "og:site_name" && meta.ogSiteName == "":
				meta.ogSiteName = content
			case property == "og:title" && meta.ogTitle == "":
				meta.ogTitle = content
			}
		case "title":
			if meta.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				meta.title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "link":
			rel := strings.ToLower(attr(n, "rel"))
			if meta.icon == "" && (rel == "icon" || rel == "shortcut icon" || rel == "apple-touch-icon") {
				meta.icon = attr(n, "href")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		scan(c, meta)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func displayName(meta *pageMeta, host string) string {
	for _, candidate := range []string{meta.ogSiteName, meta.ogTitle, meta.title} {
		if candidate != "" {
			return candidate
		}
	}
	return host
}

func resolveIcon(page *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return page.ResolveReference(ref).String()
}
