package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/external"
	"github.com/notable-labs/noteseek/internal/storage"
)

type searchRequest struct {
	Query         string `json:"query"`
	Limit         int    `json:"limit"`
	DocID         string `json:"docId,omitempty"`
	SourceBlockID string `json:"sourceBlockId,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	var filter *storage.SearchFilter
	if req.DocID != "" || req.SourceBlockID != "" {
		filter = &storage.SearchFilter{DocID: req.DocID, SourceBlockID: req.SourceBlockID}
	}
	matches, err := s.svc.SearchChunks(r.Context(), req.Query, req.Limit, filter)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": matches})
}

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	results, err := s.svc.SearchDocuments(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.logger.Error("document search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

type relatedRequest struct {
	Content      string `json:"content"`
	ExcludeDocID string `json:"excludeDocId"`
	Limit        int    `json:"limit"`
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	results, err := s.svc.RelatedDocuments(r.Context(), req.Content, req.ExcludeDocID, req.Limit)
	if err != nil {
		s.logger.Error("related search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Graph(r.Context())
	if err != nil {
		s.logger.Error("graph build failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

type reindexRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an empty one means a regular incremental reindex.
	var req reindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	summary, err := s.svc.ReindexAll(r.Context(), req.Force, nil)
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := s.svc.Repo().Save(r.Context(), id, data); err != nil {
		s.logger.Error("save document failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.svc.IndexDocument(r.Context(), id, data); err != nil {
		s.logger.Error("index document failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "indexed"})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("delete document failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.svc.Repo().Delete(r.Context(), id); err != nil {
		s.logger.Warn("delete document file failed", zap.String("id", id), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

type externalRequest struct {
	DocID    string `json:"docId"`
	BlockID  string `json:"blockId"`
	Target   string `json:"target"`
	MaxDepth int    `json:"maxDepth,omitempty"`
}

func (req *externalRequest) validate() string {
	switch {
	case req.DocID == "":
		return "docId is required"
	case req.BlockID == "":
		return "blockId is required"
	case req.Target == "":
		return "target is required"
	}
	return ""
}

func (s *Server) handleIndexBookmark(w http.ResponseWriter, r *http.Request) {
	var req externalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.svc.IndexBookmark(r.Context(), req.DocID, req.BlockID, req.Target); err != nil {
		s.logger.Error("bookmark indexing failed", zap.String("url", req.Target), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "indexed"})
}

func (s *Server) handleIndexFile(w http.ResponseWriter, r *http.Request) {
	var req externalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.svc.IndexFile(r.Context(), req.DocID, req.BlockID, req.Target); err != nil {
		s.logger.Error("file indexing failed", zap.String("path", req.Target), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "indexed"})
}

func (s *Server) handleIndexFolder(w http.ResponseWriter, r *http.Request) {
	var req externalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	result, err := s.svc.IndexFolder(r.Context(), req.DocID, req.BlockID, req.Target, req.MaxDepth)
	if err != nil {
		s.logger.Error("folder indexing failed", zap.String("dir", req.Target), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type externalReindexRequest struct {
	Refs []external.Ref `json:"refs"`
}

func (s *Server) handleReindexExternal(w http.ResponseWriter, r *http.Request) {
	var req externalReindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Refs) == 0 {
		s.respondError(w, http.StatusBadRequest, "refs is required")
		return
	}
	summary, err := s.svc.ReindexExternal(r.Context(), req.Refs, nil)
	if err != nil {
		s.logger.Error("external reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.respondError(w, http.StatusBadRequest, "key is required")
		return
	}
	content, err := s.svc.Snapshot(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		s.logger.Error("snapshot lookup failed", zap.String("key", key), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"key": key, "content": content})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
