package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRfake")

func TestLocalCASPutReadDelete(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	ctx := context.Background()

	first, err := cas.Put(ctx, pngImage)
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if first.MediaType != "image/png" {
		t.Fatalf("expected image/png, got %q", first.MediaType)
	}
	if !strings.HasPrefix(first.Key, "images/sha256/") || !strings.HasSuffix(first.Key, ".png") {
		t.Fatalf("unexpected key %q", first.Key)
	}
	if first.SizeBytes != int64(len(pngImage)) {
		t.Fatalf("expected size %d, got %d", len(pngImage), first.SizeBytes)
	}

	second, err := cas.Put(ctx, pngImage)
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if !first.Created || second.Created {
		t.Fatalf("expected only the first put to write: first=%v second=%v", first.Created, second.Created)
	}
	second.Created = true
	if first != second {
		t.Fatalf("expected identical refs for identical images: first=%#v second=%#v", first, second)
	}

	data, err := cas.Read(ctx, first.Key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(pngImage) {
		t.Fatalf("image bytes changed")
	}

	if err := cas.Delete(ctx, first.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cas.Delete(ctx, first.Key); err != nil {
		t.Fatalf("delete missing should be noop: %v", err)
	}
}

func TestLocalCASRejectsEmptyImage(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	if _, err := cas.Put(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestLocalCASDetectsTampering(t *testing.T) {
	root := t.TempDir()
	cas, err := NewLocalCAS(root)
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	ref, err := cas.Put(context.Background(), pngImage)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(ref.Key)), []byte("other"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := cas.Read(context.Background(), ref.Key); err == nil {
		t.Fatal("expected digest mismatch error")
	}
}

func TestLocalCASRejectsEscapingKeys(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	for _, key := range []string{"", "/etc/passwd", "../secret", "images/../../secret", "posts.ndjson"} {
		if _, err := cas.Read(context.Background(), key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestExtensionFor(t *testing.T) {
	if got := ExtensionFor("image/jpeg"); got != ".jpg" {
		t.Fatalf("expected .jpg, got %q", got)
	}
	if got := ExtensionFor("application/octet-stream"); got != ".bin" {
		t.Fatalf("expected .bin, got %q", got)
	}
}
