package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
)

// ExclusionRule is one matcher over a descriptor's enclosing section name
// or link text. Rules are data, not branches in code, so they are
// independently testable and extendable without modifying the crawl loop
// (spec §9 "Crawler exclusion rules").
type ExclusionRule struct {
	Reason          string
	SectionContains string // case-insensitive; empty to skip this check
	LinkTextContains string // case-insensitive; empty to skip this check
}

// DefaultExclusionRules implements spec §4.1's justice.gov-specific
// exclusion policy: sections containing "DOJ Disclosure", or link text
// containing "Transparency Act" or "EFTA".
var DefaultExclusionRules = []ExclusionRule{
	{Reason: "doj_disclosure_section", SectionContains: "doj disclosure"},
	{Reason: "transparency_act_link", LinkTextContains: "transparency act"},
	{Reason: "efta_link", LinkTextContains: "efta"},
}

// matchExclusion returns the reason string of the first rule that matches
// section or linkText, or "" when none match.
func matchExclusion(rules []ExclusionRule, section, linkText string) string {
	lowerSection := strings.ToLower(section)
	lowerLink := strings.ToLower(linkText)
	for _, r := range rules {
		if r.SectionContains != "" && strings.Contains(lowerSection, strings.ToLower(r.SectionContains)) {
			return r.Reason
		}
		if r.LinkTextContains != "" && strings.Contains(lowerLink, strings.ToLower(r.LinkTextContains)) {
			return r.Reason
		}
	}
	return ""
}

// SiteCrawler parses a single HTML page, walks sections (h1-h4 headings
// treated as section boundaries), and emits descriptors for anchor tags
// pointing at allowed file extensions, each carrying its enclosing section
// heading (spec §4.1 "Site-specific HTML crawler"). Link walking itself
// (attribute extraction, URL resolution) is grounded on the reference
// pack's TheSnook/polyester crawler, adapted from full-site link-following
// to single-page document-link extraction.
type SiteCrawler struct {
	rootURL    string
	rules      []ExclusionRule
	httpClient httpDoer
	log        *logging.Logger
}

// NewSiteCrawler builds a SiteCrawler against rootURL using rules for
// exclusion. Pass crawler.DefaultExclusionRules for the justice.gov policy.
func NewSiteCrawler(rootURL string, rules []ExclusionRule) *SiteCrawler {
	return &SiteCrawler{
		rootURL:    rootURL,
		rules:      rules,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.NewLogger("crawler.site"),
	}
}

func (c *SiteCrawler) Discover(ctx context.Context) Result {
	resp, err := getWithRetry(ctx, c.httpClient, c.rootURL, "text/html", c.log, defaultRetry)
	if err != nil {
		return Result{Err: errors.Internal("discovery_failed: could not fetch site root", err)}
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return Result{Err: errors.PermanentUpstream("failed to parse site HTML", err)}
	}

	base, err := url.Parse(c.rootURL)
	if err != nil {
		return Result{Err: errors.Internal("invalid root url", err)}
	}

	descriptors := c.walkSections(doc, base)
	c.log.Info("site crawl complete", "total", len(descriptors))
	return Result{Descriptors: descriptors}
}

// walkSections does a depth-first walk of the document, tracking the most
// recent heading text as the current section label, and emits a
// descriptor for every anchor whose href points at an allowed extension.
func (c *SiteCrawler) walkSections(doc *html.Node, base *url.URL) []Descriptor {
	var out []Descriptor
	currentSection := ""

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4:
				if text := textContent(n); text != "" {
					currentSection = text
				}
			case atom.A:
				href := attrValue(n, "href")
				if href == "" {
					break
				}
				resolved := resolveURL(base, href)
				filename := filenameFromURL(resolved)
				if !isAllowedFile(filename) {
					break
				}
				linkText := textContent(n)
				d := Descriptor{
					URL:          resolved,
					Filename:     filename,
					SectionLabel: currentSection,
				}
				d.ExcludeReason = matchExclusion(c.rules, currentSection, linkText)
				out = append(out, d)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(doc)
	return out
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func resolveURL(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(u).String()
}

func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parts := strings.Split(u.Path, "/")
	return parts[len(parts)-1]
}
