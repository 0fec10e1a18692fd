// Package blobstore writes post images into a content-addressed directory
// tree so that an export carries each distinct image once.
package blobstore

import (
	"context"
	"io"
)

// ImageRef describes one stored image.
type ImageRef struct {
	Key       string `json:"key"`
	SHA256    string `json:"sha256"`
	MediaType string `json:"media_type"`
	SizeBytes int64  `json:"size_bytes"`
	// Created is set when Put wrote the bytes rather than finding them.
	Created bool `json:"-"`
}

// ImageStore is the byte storage used by export and import.
type ImageStore interface {
	Put(ctx context.Context, image []byte) (ImageRef, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var _ ImageStore = (*LocalCAS)(nil)

// maxImageBytes bounds reads of a single stored image.
const maxImageBytes = 64 << 20

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, errImageTooLarge
	}
	return data, nil
}
