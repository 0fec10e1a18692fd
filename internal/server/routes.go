package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Posts collection.
	mux.HandleFunc("POST /v1/posts", s.handleCreatePost)
	mux.HandleFunc("POST /v1/posts/upload", s.handleUploadPost)
	mux.HandleFunc("GET /v1/posts", s.handleListPosts)
	mux.HandleFunc("GET /v1/posts/recent", s.handleRecentPosts)

	// Single post.
	mux.HandleFunc("GET /v1/posts/{id}", s.handleGetPost)
	mux.HandleFunc("GET /v1/posts/{id}/image", s.handleGetPostImage)
	mux.HandleFunc("GET /v1/posts/{id}/card", s.handleGetPostCard)

	// Import/Export.
	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("POST /v1/import", s.handleImport)

	return mux
}
