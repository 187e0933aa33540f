package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// decodeJSONBody decodes r.Body into v, leaving v unchanged (so callers'
// defaults survive) when the body is empty.
func decodeJSONBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// statusForKind maps a gwerrors.Kind to the HTTP status a caller should see.
func statusForKind(kind gwerrors.Kind) int {
	switch kind {
	case gwerrors.KindNotFound:
		return http.StatusNotFound
	case gwerrors.KindValidationError:
		return http.StatusBadRequest
	case gwerrors.KindSyncInProgress:
		return http.StatusConflict
	case gwerrors.KindUpstreamUnavailable:
		return http.StatusBadGateway
	case gwerrors.KindUpstreamQueryError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes a JSON error body with the status implied
// by its gwerrors.Kind (spec.md §6's error surface).
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := gwerrors.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	} else {
		s.log.Debug("request failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}
