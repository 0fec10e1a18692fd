package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Image    []byte `json:"image,omitempty"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{ID: 1, Category: "news"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"id":1,"category":"news"}` {
		t.Fatalf("unexpected json %q", got)
	}
}

func TestYAMLFormatterUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLFormatter{}).Write(&buf, []sample{{ID: 7, Category: "tutorial", Image: []byte("hi")}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"- category: tutorial", "id: 7", "image: aGk="} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml output:\n%s", want, out)
		}
	}
}

func TestByName(t *testing.T) {
	if _, err := ByName("yaml"); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if f, err := ByName(""); err != nil || f == nil {
		t.Fatalf("default: %v", err)
	}
	if _, err := ByName("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
