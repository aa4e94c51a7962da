package crawler

import (
	"encoding/json"
	"testing"
)

func TestExtractDescriptors(t *testing.T) {
	cases := []struct {
		name string
		json string
		want int
	}{
		{
			name: "flat string array",
			json: `["a.pdf", "b.txt", "c.jpg"]`,
			want: 2,
		},
		{
			name: "files wrapper with objects",
			json: `{"files": [{"key": "docs/a.pdf", "filename": "a.pdf"}, {"url": "docs/b.png"}]}`,
			want: 2,
		},
		{
			name: "nested data.items",
			json: `{"data": {"items": [{"path": "x/y/z.pdf"}]}}`,
			want: 1,
		},
		{
			name: "object with no recognizable url field",
			json: `{"files": [{"not_a_url_field": "value"}]}`,
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var parsed interface{}
			if err := json.Unmarshal([]byte(tc.json), &parsed); err != nil {
				t.Fatalf("invalid test fixture json: %v", err)
			}
			got := extractDescriptors(parsed)
			if len(got) != tc.want {
				t.Errorf("extractDescriptors() = %d descriptors, want %d (%+v)", len(got), tc.want, got)
			}
		})
	}
}

func TestDescriptorFromObjectDerivesFilenameFromPath(t *testing.T) {
	obj := map[string]interface{}{"href": "https://example.gov/files/report.PDF"}
	d, ok := descriptorFromObject(obj)
	if !ok {
		t.Fatal("expected descriptor to be recognized")
	}
	if d.Filename != "report.PDF" {
		t.Errorf("filename = %q, want %q", d.Filename, "report.PDF")
	}
}
