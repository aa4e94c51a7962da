package crawler

import (
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestMatchExclusion(t *testing.T) {
	cases := []struct {
		name       string
		section    string
		linkText   string
		wantReason string
	}{
		{"doj disclosure section", "DOJ Disclosure Records", "anything.pdf", "doj_disclosure_section"},
		{"transparency act link", "General Records", "Transparency Act Request 2019", "transparency_act_link"},
		{"efta link case insensitive", "General Records", "EFTA compliance log", "efta_link"},
		{"no match", "Press Releases", "Statement.pdf", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := matchExclusion(DefaultExclusionRules, tc.section, tc.linkText)
			if got != tc.wantReason {
				t.Errorf("matchExclusion(%q, %q) = %q, want %q", tc.section, tc.linkText, got, tc.wantReason)
			}
		})
	}
}

func TestSiteCrawlerWalkSections(t *testing.T) {
	page := `
	<html><body>
		<h2>Press Releases</h2>
		<a href="/files/statement.pdf">Statement</a>
		<h2>DOJ Disclosure Records</h2>
		<a href="/files/disclosure.pdf">Disclosure Record</a>
		<h3>General Records</h3>
		<a href="/files/transparency.pdf">Transparency Act Submission</a>
		<a href="/files/readme.txt">Not an allowed extension</a>
	</body></html>`

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("failed to parse fixture html: %v", err)
	}
	base, _ := url.Parse("https://example.gov/epstein")

	c := &SiteCrawler{rules: DefaultExclusionRules}
	descriptors := c.walkSections(doc, base)

	if len(descriptors) != 3 {
		t.Fatalf("expected 3 descriptors (allowed extensions only), got %d: %+v", len(descriptors), descriptors)
	}

	byFile := make(map[string]Descriptor)
	for _, d := range descriptors {
		byFile[d.Filename] = d
	}

	if d := byFile["statement.pdf"]; d.ExcludeReason != "" || d.SectionLabel != "Press Releases" {
		t.Errorf("statement.pdf: got section=%q exclude=%q", d.SectionLabel, d.ExcludeReason)
	}
	if d := byFile["disclosure.pdf"]; d.ExcludeReason != "doj_disclosure_section" {
		t.Errorf("disclosure.pdf: expected doj_disclosure_section exclusion, got %q", d.ExcludeReason)
	}
	if d := byFile["transparency.pdf"]; d.ExcludeReason != "transparency_act_link" {
		t.Errorf("transparency.pdf: expected transparency_act_link exclusion, got %q", d.ExcludeReason)
	}
}
