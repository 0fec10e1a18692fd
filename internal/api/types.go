package api

import (
	"time"

	"chapel/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// PostCreateRequest is the body of POST /v1/posts. Image travels as
// standard base64.
type PostCreateRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Image    []byte `json:"image,omitempty"`
}

// PostResponse is a stored post as returned by the API.
type PostResponse struct {
	models.Post
	HasImage bool `json:"has_image"`
}

// NewPostResponse wraps a stored post. Image bytes are dropped unless
// withImage is set.
func NewPostResponse(post models.Post, withImage bool) PostResponse {
	resp := PostResponse{Post: post, HasImage: post.HasImage()}
	if !withImage {
		resp.Image = nil
	}
	return resp
}

// CardResponse is the presentation form of a post: a short excerpt, the
// rendered body and the image as a data URI.
type CardResponse struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Category     models.Category `json:"category"`
	DatePosted   time.Time       `json:"date_posted"`
	Excerpt      string          `json:"excerpt"`
	ContentHTML  string          `json:"content_html"`
	ImageDataURI string          `json:"image_data_uri,omitempty"`
}

// InfoResponse describes the server's store.
type InfoResponse struct {
	DBPath         string         `json:"db_path"`
	Backend        string         `json:"backend"`
	SchemaVersion  int            `json:"schema_version"`
	TotalPosts     int            `json:"total_posts"`
	CategoryCounts map[string]int `json:"category_counts"`
	Categories     []string       `json:"categories"`
}

// ExportRecord is one NDJSON line of an export. ImageKey is set instead of
// Image when images were written to a separate directory.
type ExportRecord struct {
	ID         int64           `json:"id,omitempty"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Category   models.Category `json:"category"`
	DatePosted time.Time       `json:"date_posted,omitzero"`
	Image      []byte          `json:"image,omitempty"`
	ImageKey   string          `json:"image_key,omitempty"`
}

// ImportResponse summarizes an NDJSON import.
type ImportResponse struct {
	Created  int      `json:"created"`
	Errors   int      `json:"errors"`
	PostIDs  []int64  `json:"post_ids"`
	Messages []string `json:"messages,omitempty"`
}

// ImportErrorResponse is the body of an import aborted after some posts
// were already stored.
type ImportErrorResponse struct {
	ErrorResponse
	Created int     `json:"created"`
	PostIDs []int64 `json:"post_ids"`
}
