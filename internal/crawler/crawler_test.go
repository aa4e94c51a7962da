package crawler

import "testing"

func TestIsAllowedFile(t *testing.T) {
	cases := []struct {
		filename string
		want     bool
	}{
		{"report.pdf", true},
		{"scan.PNG", true},
		{"photo.jpeg", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noextension", false},
		{"trailing.", false},
	}
	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			if got := isAllowedFile(tc.filename); got != tc.want {
				t.Errorf("isAllowedFile(%q) = %v, want %v", tc.filename, got, tc.want)
			}
		})
	}
}

func TestResultIncluded(t *testing.T) {
	r := Result{Descriptors: []Descriptor{
		{Filename: "a.pdf"},
		{Filename: "b.pdf", ExcludeReason: "doj_disclosure_section"},
		{Filename: "c.pdf"},
	}}
	included := r.Included()
	if len(included) != 2 {
		t.Fatalf("expected 2 included descriptors, got %d", len(included))
	}
	for _, d := range included {
		if d.ExcludeReason != "" {
			t.Errorf("included descriptor %q carries an exclude reason", d.Filename)
		}
	}
}
