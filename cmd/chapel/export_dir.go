package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"chapel/internal/api"
	"chapel/internal/blobstore"
	"chapel/internal/render"
)

const (
	exportRecordsFile = "posts.ndjson"
	exportPostsDir    = "posts"
	maxExportLine     = 96 * 1024 * 1024
)

type exportDirSummary struct {
	Dir    string `json:"dir"`
	Posts  int    `json:"posts"`
	Images int    `json:"images"`
}

// writeExportDir splits an NDJSON export into dir: records with image_key
// references in posts.ndjson, each distinct image once under images/, and
// one Markdown file per post under posts/. Images written by a failed
// export are removed again.
func writeExportDir(ctx context.Context, records io.Reader, dir string) (exportDirSummary, error) {
	summary := exportDirSummary{Dir: dir}

	cas, err := blobstore.NewLocalCAS(dir)
	if err != nil {
		return summary, err
	}
	summary.Dir = cas.Root()
	if err := os.MkdirAll(filepath.Join(dir, exportPostsDir), 0o755); err != nil {
		return summary, err
	}

	out, err := os.Create(filepath.Join(dir, exportRecordsFile))
	if err != nil {
		return summary, err
	}
	defer out.Close()
	enc := json.NewEncoder(out)

	seen := map[string]struct{}{}
	var created []string
	err = forEachRecord(records, func(lineNum int, rec api.ExportRecord) error {
		if len(rec.Image) > 0 {
			ref, err := cas.Put(ctx, rec.Image)
			if err != nil {
				return fmt.Errorf("line %d: store image: %w", lineNum, err)
			}
			if ref.Created {
				created = append(created, ref.Key)
			}
			seen[ref.Key] = struct{}{}
			rec.ImageKey = ref.Key
			rec.Image = nil
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
		if err := writePostFile(dir, rec); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		summary.Posts++
		return nil
	})
	if err != nil {
		removeImages(cas, created)
		return summary, err
	}
	summary.Images = len(seen)
	return summary, out.Close()
}

func removeImages(images blobstore.ImageStore, keys []string) {
	for _, key := range keys {
		if err := images.Delete(context.Background(), key); err != nil {
			slog.Warn("remove exported image", "key", key, "error", err)
		}
	}
}

func writePostFile(dir string, rec api.ExportRecord) error {
	post := postFile{
		Title:    rec.Title,
		Category: string(rec.Category),
		Content:  rec.Content,
	}
	if rec.ImageKey != "" {
		post.Image = path.Join("..", rec.ImageKey)
	}
	datePosted := ""
	if !rec.DatePosted.IsZero() {
		datePosted = formatTime(rec.DatePosted)
	}

	text, err := renderPostMarkdown(post, datePosted)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, exportPostsDir, postFileName(rec)), []byte(text), 0o644)
}

func postFileName(rec api.ExportRecord) string {
	name := render.Slug(rec.Title)
	if name == "" {
		name = "post"
	}
	if rec.ID > 0 {
		name = strconv.FormatInt(rec.ID, 10) + "-" + name
	}
	return name + ".md"
}

// resolveImageKeys rewrites records so every image_key is replaced by the
// image bytes read from the directory tree rooted at root.
func resolveImageKeys(ctx context.Context, records io.Reader, root string, w io.Writer) (int, error) {
	var images blobstore.ImageStore
	enc := json.NewEncoder(w)
	count := 0

	err := forEachRecord(records, func(lineNum int, rec api.ExportRecord) error {
		if rec.ImageKey != "" && len(rec.Image) == 0 {
			if images == nil {
				cas, err := blobstore.NewLocalCAS(root)
				if err != nil {
					return err
				}
				images = cas
			}
			image, err := images.Read(ctx, rec.ImageKey)
			if err != nil {
				return fmt.Errorf("line %d: image %s: %w", lineNum, rec.ImageKey, err)
			}
			rec.Image = image
		}
		rec.ImageKey = ""
		count++
		return enc.Encode(rec)
	})
	return count, err
}

func forEachRecord(r io.Reader, fn func(lineNum int, rec api.ExportRecord) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxExportLine)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec api.ExportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if err := fn(lineNum, rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
