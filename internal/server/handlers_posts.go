package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"chapel/internal/api"
	"chapel/internal/models"
	"chapel/internal/render"
)

const defaultRecentLimit = 5

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req api.PostCreateRequest
	// Base64 inflates the image by a third.
	maxBody := defaultJSONMaxBody + s.images.MaxUploadBytes*4/3 + 4
	if !s.decodeJSONReq(w, r, &req, maxBody) {
		return
	}
	if int64(len(req.Image)) > s.images.MaxUploadBytes {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("image exceeds %d bytes", s.images.MaxUploadBytes), ErrCodeInvalidImage))
		return
	}

	s.createPost(w, r, models.NewPost{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Image:    req.Image,
	})
}

func (s *Server) handleUploadPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.images.MaxUploadBytes+multipartFieldSlack)
	if err := r.ParseMultipartForm(s.images.MultipartMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeServiceError(w, r, badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge))
			return
		}
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("invalid multipart form: %w", err), ErrCodeInvalidArgument))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	in := models.NewPost{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		Category: r.FormValue("category"),
	}

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("invalid image part: %w", err), ErrCodeInvalidImage))
		return
	default:
		defer file.Close()
		image, err := io.ReadAll(io.LimitReader(file, s.images.MaxUploadBytes+1))
		if err != nil {
			s.writeServiceError(w, r, badRequestCode(fmt.Errorf("read image: %w", err), ErrCodeInvalidImage))
			return
		}
		if int64(len(image)) > s.images.MaxUploadBytes {
			s.writeServiceError(w, r, badRequestCode(fmt.Errorf("image exceeds %d bytes", s.images.MaxUploadBytes), ErrCodeInvalidImage))
			return
		}
		in.Image = image
	}

	s.createPost(w, r, in)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request, in models.NewPost) {
	post, err := s.store.CreatePost(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.log().Info("post created", "id", post.ID, "category", post.Category, "image_bytes", len(post.Image))
	w.Header().Set("Location", "/v1/posts/"+strconv.FormatInt(post.ID, 10))
	s.writeJSON(w, http.StatusCreated, api.NewPostResponse(*post, false))
}

// handleListPosts serves listAll, filterByCategory (?category=) and
// search (?q=). Both parameters together narrow the search to a category.
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	withImages, err := queryBoolDefault(r, "images", true)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var category models.Category
	if query.Has("category") {
		category, err = models.ParseCategory(query.Get("category"))
		if err != nil {
			s.writeServiceError(w, r, badRequestCode(err, ErrCodeInvalidCategory))
			return
		}
	}

	var posts []models.Post
	switch {
	case query.Has("q"):
		if !s.acquireLimiter(s.searchLimiter, w, r, "search") {
			return
		}
		posts, err = s.store.SearchPosts(r.Context(), query.Get("q"))
		s.releaseLimiter(s.searchLimiter)
		if err == nil && category != "" {
			posts = filterCategory(posts, category)
		}
	case category != "":
		posts, err = s.store.ListPostsByCategory(r.Context(), category)
	default:
		posts, err = s.store.ListPosts(r.Context())
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, postResponses(posts, withImages))
}

func (s *Server) handleRecentPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", defaultRecentLimit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if limit == 0 {
		limit = defaultRecentLimit
	}
	withImages, err := queryBoolDefault(r, "images", false)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	posts, err := s.store.ListRecentPosts(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, postResponses(posts, withImages))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.lookupPost(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewPostResponse(*post, true))
}

func (s *Server) handleGetPostImage(w http.ResponseWriter, r *http.Request) {
	post, ok := s.lookupPost(w, r)
	if !ok {
		return
	}
	if !post.HasImage() {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("post %d has no image", post.ID), ErrCodeImageNotFound))
		return
	}

	w.Header().Set("Content-Type", render.ImageMediaType(post.Image))
	w.Header().Set("Content-Length", strconv.Itoa(len(post.Image)))
	// Posts are never updated, so the image under an id never changes.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(post.Image); err != nil {
		s.log().Debug("write image", "id", post.ID, "error", err)
	}
}

func (s *Server) handleGetPostCard(w http.ResponseWriter, r *http.Request) {
	excerptLength, err := queryIntDefault(r, "excerpt", render.DefaultExcerptLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	post, ok := s.lookupPost(w, r)
	if !ok {
		return
	}

	html, err := render.ContentHTML(post.Content)
	if err != nil {
		s.writeServiceError(w, r, internalError(fmt.Errorf("render post %d: %w", post.ID, err)))
		return
	}

	s.writeJSON(w, http.StatusOK, api.CardResponse{
		ID:           post.ID,
		Title:        post.Title,
		Category:     post.Category,
		DatePosted:   post.DatePosted,
		Excerpt:      render.Excerpt(post.Content, excerptLength),
		ContentHTML:  html,
		ImageDataURI: render.ImageDataURI(post.Image),
	})
}

// lookupPost resolves the {id} path value, writing the error response
// itself when the id is invalid or unknown.
func (s *Server) lookupPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return nil, false
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil, false
	}
	if post == nil {
		s.writeServiceError(w, r, postNotFound(id))
		return nil, false
	}
	return post, true
}

func postResponses(posts []models.Post, withImages bool) []api.PostResponse {
	out := make([]api.PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, api.NewPostResponse(post, withImages))
	}
	return out
}

func filterCategory(posts []models.Post, category models.Category) []models.Post {
	out := posts[:0]
	for _, post := range posts {
		if post.Category == category {
			out = append(out, post)
		}
	}
	return out
}
