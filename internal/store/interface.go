package store

import (
	"context"

	"chapel/internal/models"
)

// PostStore abstracts post storage backends.
type PostStore interface {
	CreatePost(ctx context.Context, in models.NewPost) (*models.Post, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error)
	ListPostsByCategory(ctx context.Context, category models.Category) ([]models.Post, error)
	SearchPosts(ctx context.Context, query string) ([]models.Post, error)
	CountPosts(ctx context.Context) (int, error)
	StoreInfo(ctx context.Context) (StoreInfo, error)
	Close() error
}

// StoreInfo summarizes a store for the info endpoint.
type StoreInfo struct {
	Backend        string         `json:"backend"`
	SchemaVersion  int            `json:"schema_version"`
	TotalPosts     int            `json:"total_posts"`
	CategoryCounts map[string]int `json:"category_counts"`
}

var _ PostStore = (*Store)(nil)
