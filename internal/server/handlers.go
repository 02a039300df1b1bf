package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/pipeline"
	"github.com/mwidera/cityguide/internal/storage"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ask request",
		zap.String("question", req.Question),
		zap.Int("top_k", req.TopK),
		zap.String("category", req.Category))

	answer, err := s.pipeline.Ask(r.Context(), &req)
	if err != nil {
		var pe *pipeline.PipelineError
		if errors.As(err, &pe) && answer != nil {
			// Degraded answers are served with 200; the payload carries the error flag.
			s.logger.Warn("serving degraded answer",
				zap.String("stage", pe.Stage),
				zap.Error(pe.Err))
			s.respondJSON(w, http.StatusOK, answer)
			return
		}
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.storage.ListCategories(r.Context())
	if err != nil {
		s.logger.Error("list categories failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if categories == nil {
		categories = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	poiCount, err := s.storage.CountPOIs(ctx)
	if err != nil {
		s.logger.Error("status: count pois failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"pois":              poiCount,
		"vector_index_size": s.index.Size(),
		"llm_available":     s.generator.Available(ctx),
		"llm_model":         s.generator.Model(),
	}
	resp["config"] = map[string]interface{}{
		"embedding_model":   s.config.Embedding.Model,
		"top_k":             s.config.Retrieval.TopK,
		"snippet_max_chars": s.config.Retrieval.SnippetMaxChars,
		"database_path":     s.config.Storage.DatabasePath,
		"vector_index_path": s.config.Storage.VectorIndexPath,
	}
	if diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.VectorIndexPath,
	); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type reindexRequest struct {
	Force bool `json:"force,omitempty"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	s.logger.Info("reindex request", zap.Bool("force", req.Force))

	n, err := s.indexer.IndexFile(r.Context(), s.config.Storage.POIDataPath, req.Force)
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.index.Save(s.config.Storage.VectorIndexPath); err != nil {
		s.logger.Error("index save failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"indexed": n, "status": "ok"})
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
