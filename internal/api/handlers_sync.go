package api

import (
	"net/http"
	"strconv"

	"github.com/ashgrove-systems/mto-gateway/internal/config"
	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
	"github.com/ashgrove-systems/mto-gateway/internal/syncjob"
)

// syncTriggerRequest is the optional JSON/query body for spec.md §6
// TriggerSync(days_back?, chunk_days?, force?).
type syncTriggerRequest struct {
	DaysBack  int  `json:"days_back"`
	ChunkDays int  `json:"chunk_days"`
	Force     bool `json:"force"`
}

// handleTriggerSync serves spec.md §6 TriggerSync. Parameters may arrive as
// query string values (gatewayctl and simple clients) or as a JSON body.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	req := syncTriggerRequest{}
	if r.Header.Get("Content-Type") == "application/json" {
		_ = decodeJSONBody(r, &req)
	}
	if v := r.URL.Query().Get("days_back"); v != "" {
		req.DaysBack, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("chunk_days"); v != "" {
		req.ChunkDays, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("force"); v == "true" {
		req.Force = true
	}

	result, err := s.orchestrator.TriggerSync(r.Context(), req.DaysBack, req.ChunkDays, req.Force)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// handleGetSyncStatus serves spec.md §6 GetSyncStatus.
func (s *Server) handleGetSyncStatus(w http.ResponseWriter, r *http.Request) {
	progress, err := s.orchestrator.GetStatus(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleUpdateSyncConfig serves spec.md §6 UpdateSyncConfig(patch): it
// validates and merges the patch into the live sync configuration, then
// pushes the resulting tunables into the orchestrator so an in-flight
// schedule or chunk-size change takes effect on the next trigger without a
// restart.
func (s *Server) handleUpdateSyncConfig(w http.ResponseWriter, r *http.Request) {
	var patch config.SyncPatch
	if err := decodeJSONBody(r, &patch); err != nil {
		s.writeError(w, gwerrors.Wrap(gwerrors.KindValidationError, "malformed sync config patch", err))
		return
	}

	next, err := s.liveSync.Apply(patch)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.orchestrator.UpdateConfig(syncjob.Config{
		ChunkDays:             next.ChunkDays,
		BatchSize:             next.BatchSize,
		ParallelChunks:        next.ParallelChunks,
		RetryCount:            next.RetryCount,
		ManualSyncDefaultDays: next.ManualSyncDefault,
		ManualSyncMinDays:     next.ManualSyncMinDays,
		ManualSyncMaxDays:     next.ManualSyncMaxDays,
	})

	writeJSON(w, http.StatusOK, next)
}

// handleGetSyncHistory serves spec.md §6 GetSyncHistory(limit), defaulting
// limit to 20.
func (s *Server) handleGetSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := s.orchestrator.GetHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
