package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// handleCacheStats serves spec.md §6 CacheStats / §4.10.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cacheAdmin.Stats())
}

// handleClearCache serves spec.md §6 ClearCache.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	dropped := s.cacheAdmin.Clear()
	writeJSON(w, http.StatusOK, map[string]int{"dropped": dropped})
}

// handleInvalidateCache serves spec.md §6 InvalidateCache(mto).
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	mto := mux.Vars(r)["mto"]
	result := s.cacheAdmin.Invalidate(mto)
	writeJSON(w, http.StatusOK, map[string]string{"result": string(result)})
}

// handleResetCacheStats serves spec.md §6 ResetCacheStats.
func (s *Server) handleResetCacheStats(w http.ResponseWriter, r *http.Request) {
	s.cacheAdmin.ResetStats()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHotMTOs serves spec.md §6 HotMtos(top_n), defaulting top_n to 10.
func (s *Server) handleHotMTOs(w http.ResponseWriter, r *http.Request) {
	topN := 10
	if v := r.URL.Query().Get("top_n"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			topN = n
		}
	}
	writeJSON(w, http.StatusOK, s.cacheAdmin.HotMTOs(topN))
}

// warmRequest is the optional JSON/query body for spec.md §6
// WarmCache(count?, use_hot?).
type warmRequest struct {
	Count  int  `json:"count"`
	UseHot bool `json:"use_hot"`
}

// handleWarmCache serves spec.md §6 WarmCache.
func (s *Server) handleWarmCache(w http.ResponseWriter, r *http.Request) {
	req := warmRequest{Count: 20}
	if r.Header.Get("Content-Type") == "application/json" {
		_ = decodeJSONBody(r, &req)
	}
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Count = n
		}
	}
	if v := r.URL.Query().Get("use_hot"); v == "true" {
		req.UseHot = true
	}

	result, err := s.cacheAdmin.Warm(r.Context(), req.Count, req.UseHot)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
