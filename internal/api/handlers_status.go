package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
)

// handleGetStatus serves spec.md §6 GetStatus(mto): the assembled MTO
// product-status view, honoring ?use_cache=false to bypass the memory tier.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	mto := mux.Vars(r)["mto"]
	if mto == "" {
		s.writeError(w, gwerrors.Newf(gwerrors.KindValidationError, "mto is required"))
		return
	}

	useCache := true
	if v := r.URL.Query().Get("use_cache"); v == "false" {
		useCache = false
	}

	result, err := s.assembler.GetStatus(r.Context(), mto, useCache)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetRelatedOrders serves spec.md §6 GetRelatedOrders(mto).
func (s *Server) handleGetRelatedOrders(w http.ResponseWriter, r *http.Request) {
	mto := mux.Vars(r)["mto"]
	if mto == "" {
		s.writeError(w, gwerrors.Newf(gwerrors.KindValidationError, "mto is required"))
		return
	}

	result, err := s.related.GetRelatedOrders(r.Context(), mto)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
