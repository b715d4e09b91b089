package sources

import (
	"encoding/json"
	"testing"
)

func TestBlankCommentsPreservesLength(t *testing.T) {
	in := []byte("{\n  // comment\n  \"a\": 1 /* block */\n}\n")
	out := blankComments(in)
	if len(out) != len(in) {
		t.Fatalf("length changed: got %d, want %d", len(out), len(in))
	}

	var v map[string]any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("blanked output is not valid JSON: %v", err)
	}
	if v["a"] != float64(1) {
		t.Errorf("a = %v, want 1", v["a"])
	}
}

func TestBlankCommentsKeepsStrings(t *testing.T) {
	in := []byte(`{"url": "http://example.com/*x*/", "note": "a // b"}`)
	out := blankComments(in)

	var v map[string]string
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v["url"] != "http://example.com/*x*/" {
		t.Errorf("url mangled: %q", v["url"])
	}
	if v["note"] != "a // b" {
		t.Errorf("note mangled: %q", v["note"])
	}
}

func TestBlankCommentsTrailingCommas(t *testing.T) {
	in := []byte("{\n  \"items\": [1, 2, 3,],\n  \"last\": true,\n}\n")
	out := blankComments(in)

	var v struct {
		Items []int `json:"items"`
		Last  bool  `json:"last"`
	}
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("trailing commas not removed: %v\n%s", err, out)
	}
	if len(v.Items) != 3 || !v.Last {
		t.Errorf("parsed %+v, want 3 items and last=true", v)
	}
}

func TestBlankCommentsTrailingCommaBeforeComment(t *testing.T) {
	in := []byte("{\n  \"a\": 1, // note\n}\n")
	out := blankComments(in)

	var v map[string]int
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if v["a"] != 1 {
		t.Errorf("a = %d, want 1", v["a"])
	}
}

func TestBlankCommentsKeepsNewlines(t *testing.T) {
	in := []byte("{\n/* line1\nline2 */\n\"a\": 1\n}")
	out := blankComments(in)

	wantLines := 0
	for _, c := range in {
		if c == '\n' {
			wantLines++
		}
	}
	gotLines := 0
	for _, c := range out {
		if c == '\n' {
			gotLines++
		}
	}
	if gotLines != wantLines {
		t.Errorf("newline count changed: got %d, want %d", gotLines, wantLines)
	}
}
