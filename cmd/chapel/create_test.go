package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chapel/internal/config"
)

func TestBuildCreateRequestFromFlags(t *testing.T) {
	opts := &createCmdOptions{content: "corpo", category: "news", imagePath: "cover.png"}
	req, imagePath, err := buildCreateRequest(strings.NewReader(""), opts, []string{"Noite", "de", "Louvor"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Title != "Noite de Louvor" || req.Content != "corpo" || req.Category != "news" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if imagePath != "cover.png" {
		t.Fatalf("unexpected image path %q", imagePath)
	}
}

func TestBuildCreateRequestContentFromStdin(t *testing.T) {
	opts := &createCmdOptions{content: "-", category: "tutorial"}
	req, _, err := buildCreateRequest(strings.NewReader("do stdin"), opts, []string{"Título"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Content != "do stdin" {
		t.Fatalf("unexpected content %q", req.Content)
	}
}

func TestBuildCreateRequestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "post.md")
	body := "---\ntitle: Do Arquivo\ncategory: meditation\nimage: cover.png\n---\nTexto.\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	opts := &createCmdOptions{filePath: path, category: "news"}
	req, imagePath, err := buildCreateRequest(strings.NewReader(""), opts, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Title != "Do Arquivo" || req.Content != "Texto." {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Category != "news" {
		t.Fatalf("flag should override front matter category, got %q", req.Category)
	}
	if imagePath != filepath.Join(dir, "cover.png") {
		t.Fatalf("image path should resolve next to the file, got %q", imagePath)
	}
}

func TestBuildCreateRequestRequiresTitle(t *testing.T) {
	if _, _, err := buildCreateRequest(strings.NewReader(""), &createCmdOptions{content: "x"}, nil); err == nil {
		t.Fatal("expected title error")
	}
}

func TestCategoryFlagHelpListsCategories(t *testing.T) {
	if got := categoryChoices(); got != "meditation|tutorial|news" {
		t.Fatalf("unexpected category choices %q", got)
	}
	flag := newListCmd(&config.Config{}, new(bool)).Flags().Lookup("category")
	if flag == nil || !strings.Contains(flag.Usage, "meditation|tutorial|news") {
		t.Fatalf("list --category help should name the categories, got %+v", flag)
	}
}
