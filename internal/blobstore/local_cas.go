package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	imagesDir          = "images"
	casAlgorithmPrefix = "sha256"
)

var errImageTooLarge = errors.New("stored image exceeds size limit")

var extensions = map[string]string{
	"image/png":    ".png",
	"image/jpeg":   ".jpg",
	"image/gif":    ".gif",
	"image/webp":   ".webp",
	"image/bmp":    ".bmp",
	"image/x-icon": ".ico",
}

// LocalCAS keeps images under <root>/images/sha256/ab/cd/<digest><ext>.
type LocalCAS struct {
	root string
}

// NewLocalCAS creates the image tree under root.
func NewLocalCAS(root string) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("image store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, imagesDir, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalCAS{root: abs}, nil
}

// Root returns the absolute directory the store writes under.
func (c *LocalCAS) Root() string {
	return c.root
}

// Put stores image unless an identical image is already present.
func (c *LocalCAS) Put(ctx context.Context, image []byte) (ImageRef, error) {
	var zero ImageRef
	if c == nil {
		return zero, fmt.Errorf("image store is not configured")
	}
	if len(image) == 0 {
		return zero, fmt.Errorf("image is empty")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	sum := sha256.Sum256(image)
	digest := hex.EncodeToString(sum[:])
	mediaType := http.DetectContentType(image)
	ref := ImageRef{
		Key:       keyFromDigest(digest, mediaType),
		SHA256:    digest,
		MediaType: mediaType,
		SizeBytes: int64(len(image)),
	}

	dst := filepath.Join(c.root, filepath.FromSlash(ref.Key))
	if _, err := os.Stat(dst); err == nil {
		return ref, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return zero, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(c.root, imagesDir, "tmp"), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(image)); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return ref, nil
		}
		cleanup()
		return zero, err
	}
	ref.Created = true
	return ref, nil
}

// Read returns the bytes stored under key and checks them against the
// digest in the key.
func (c *LocalCAS) Read(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("image store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", key, err)
	}
	sum := sha256.Sum256(data)
	if want := digestFromKey(key); want != "" && want != hex.EncodeToString(sum[:]) {
		return nil, fmt.Errorf("image %s: digest mismatch", key)
	}
	return data, nil
}

// Delete removes an image. Missing files are ignored.
func (c *LocalCAS) Delete(ctx context.Context, key string) error {
	if c == nil {
		return fmt.Errorf("image store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ExtensionFor returns the file extension used for a media type.
func ExtensionFor(mediaType string) string {
	if ext, ok := extensions[mediaType]; ok {
		return ext
	}
	return ".bin"
}

func keyFromDigest(digest, mediaType string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s%s", imagesDir, casAlgorithmPrefix, digest[0:2], digest[2:4], digest, ExtensionFor(mediaType))
}

func digestFromKey(key string) string {
	base := filepath.Base(filepath.FromSlash(key))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if len(base) != sha256.Size*2 {
		return ""
	}
	return base
}

func (c *LocalCAS) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("image key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("image key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid image key")
	}
	if !strings.HasPrefix(clean, imagesDir+string(filepath.Separator)) {
		return "", fmt.Errorf("image key must be under %s/", imagesDir)
	}
	return filepath.Join(c.root, clean), nil
}
