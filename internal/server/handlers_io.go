package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"chapel/internal/api"
	"chapel/internal/models"
	"chapel/internal/store"
)

const maxImportMessages = 50

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.exportLimiter, w, r, "export") {
		return
	}
	defer s.releaseLimiter(s.exportLimiter)

	// Listing before the header is written keeps a storage failure a 503
	// instead of a truncated 200.
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	for _, post := range posts {
		record := api.ExportRecord{
			ID:         post.ID,
			Title:      post.Title,
			Content:    post.Content,
			Category:   post.Category,
			DatePosted: post.DatePosted,
			Image:      post.Image,
		}
		if err := enc.Encode(record); err != nil {
			s.log().Error("export encode", "method", r.Method, "path", r.URL.Path, "post_id", post.ID, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

type importLine struct {
	num int
	rec api.ExportRecord
}

// handleImport creates one post per NDJSON line. The whole body is parsed
// before the first post is stored, so malformed input stores nothing.
// Invalid records are counted and reported. A storage failure aborts the
// import and the error body lists the posts stored before it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.importLimiter, w, r, "import") {
		return
	}
	defer s.releaseLimiter(s.importLimiter)

	r.Body = http.MaxBytesReader(w, r.Body, importJSONMaxBody)
	lines, err := readImportLines(r.Body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	response := api.ImportResponse{PostIDs: []int64{}}
	addMessage := func(msg string) {
		if len(response.Messages) < maxImportMessages {
			response.Messages = append(response.Messages, msg)
		}
	}

	for _, line := range lines {
		rec := line.rec
		if rec.ImageKey != "" && len(rec.Image) == 0 {
			response.Errors++
			addMessage(fmt.Sprintf("line %d: image_key %q must be resolved by the client", line.num, rec.ImageKey))
			continue
		}
		if int64(len(rec.Image)) > s.images.MaxUploadBytes {
			response.Errors++
			addMessage(fmt.Sprintf("line %d: image exceeds %d bytes", line.num, s.images.MaxUploadBytes))
			continue
		}

		post, err := s.store.CreatePost(r.Context(), models.NewPost{
			Title:    rec.Title,
			Content:  rec.Content,
			Category: string(rec.Category),
			Image:    rec.Image,
		})
		if err != nil {
			if errors.Is(err, store.ErrValidationRejected) {
				response.Errors++
				addMessage(fmt.Sprintf("line %d: %v", line.num, err))
				continue
			}
			s.writeImportAborted(w, r, fmt.Errorf("line %d: %w", line.num, err), response)
			return
		}
		response.Created++
		response.PostIDs = append(response.PostIDs, post.ID)
	}

	s.log().Info("import complete", "created", response.Created, "errors", response.Errors)
	s.writeJSON(w, http.StatusOK, response)
}

func readImportLines(body io.Reader) ([]importLine, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), importStreamMaxLine)

	var lines []importLine
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec api.ExportRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, badRequestCode(fmt.Errorf("line %d: %w", lineNum, err), ErrCodeInvalidImportRecord)
		}
		lines = append(lines, importLine{num: lineNum, rec: rec})
	}
	if err := scanner.Err(); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) || errors.Is(err, bufio.ErrTooLong) {
			return nil, badRequestCode(fmt.Errorf("import too large: %w", err), ErrCodeRequestTooLarge)
		}
		return nil, badRequestCode(fmt.Errorf("reading input: %w", err), ErrCodeInvalidImportRecord)
	}
	if len(lines) == 0 {
		return nil, badRequestCode(fmt.Errorf("no records found in input"), ErrCodeMissingRequired)
	}
	return lines, nil
}

// writeImportAborted reports a storage failure together with the posts
// that were stored before it.
func (s *Server) writeImportAborted(w http.ResponseWriter, r *http.Request, err error, done api.ImportResponse) {
	err = storeError(err)
	status := httpStatusFromError(err)
	message := err.Error()
	if status == http.StatusServiceUnavailable {
		message = store.ErrStorageUnavailable.Error()
	} else if status >= 500 {
		message = "internal error"
	}
	s.log().Error("import aborted", "status", status, "created", done.Created, "method", r.Method, "path", r.URL.Path, "error", err)
	s.writeJSON(w, status, api.ImportErrorResponse{
		ErrorResponse: api.ErrorResponse{
			Error:     message,
			Code:      errorCode(status, err),
			ErrorCode: errorNumericCode(status, err),
		},
		Created: done.Created,
		PostIDs: done.PostIDs,
	})
}
