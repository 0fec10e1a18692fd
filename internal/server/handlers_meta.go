package server

import (
	"net/http"

	"chapel/internal/api"
	"chapel/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InfoResponse{
		DBPath:         s.dbPath,
		Backend:        info.Backend,
		SchemaVersion:  info.SchemaVersion,
		TotalPosts:     info.TotalPosts,
		CategoryCounts: info.CategoryCounts,
		Categories:     models.CategoryStrings(),
	}

	s.writeJSON(w, http.StatusOK, resp)
}
