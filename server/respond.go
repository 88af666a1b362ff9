package server

import (
	"encoding/json"
	"net/http"

	"github.com/inboxcrm/connector/credentials"
	"github.com/inboxcrm/connector/crm"
	"github.com/inboxcrm/connector/crm/dedup"
	interrors "github.com/inboxcrm/connector/internal/errors"
	"github.com/inboxcrm/connector/profiles"
	"github.com/inboxcrm/connector/sessions"
	"github.com/inboxcrm/connector/upstream"
	"github.com/pkg/errors"
)

var errMissingDeps = errors.New("[Server New] registry, sessions, credentials and dedup store are all required")

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type duplicateResponse struct {
	Error         string          `json:"error"`
	Existing      dedup.RecordRef `json:"existing"`
	CorrelationID string          `json:"correlationId,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, status, errorResponse{
		Error:         message,
		CorrelationID: correlationID(r.Context()),
	})
}

// respondError translates the service-layer error taxonomy into an HTTP
// status. Messages stay generic; detail lives in the server log under the
// correlation id.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		resolution  *profiles.ResolutionError
		authFail    *credentials.AuthFailure
		duplicate   *crm.DuplicateSubmissionError
		httpErr     *upstream.HTTPError
		unreachable *upstream.UnreachableError
		badResponse *upstream.BadResponseError
	)

	switch {
	case errors.As(err, &duplicate):
		s.writeJSON(w, http.StatusConflict, duplicateResponse{
			Error:         "already recorded",
			Existing:      duplicate.Existing,
			CorrelationID: correlationID(r.Context()),
		})
		return
	case errors.As(err, &resolution):
		s.writeError(w, r, http.StatusBadRequest, resolution.Error())
	case errors.Is(err, sessions.ErrInvalidOrExpiredToken), errors.Is(err, sessions.ErrSessionNotFound):
		s.writeError(w, r, http.StatusUnauthorized, "invalid or expired session")
	case errors.As(err, &authFail):
		s.writeError(w, r, authFail.SuggestedStatus, "upstream authentication failed")
	case errors.Is(err, crm.ErrInvalidInput):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, interrors.ErrUpstreamUnreachable):
		s.writeError(w, r, http.StatusBadGateway, "upstream unreachable")
	case errors.Is(err, interrors.ErrUpstreamBadResponse):
		s.writeError(w, r, http.StatusBadGateway, "bad upstream response")
	case errors.As(err, &httpErr):
		if httpErr.Status == http.StatusNotFound {
			s.writeError(w, r, http.StatusNotFound, "record not found")
			return
		}
		s.writeError(w, r, http.StatusBadGateway, "upstream request failed")
	case errors.As(err, &unreachable), errors.As(err, &badResponse):
		s.writeError(w, r, http.StatusBadGateway, "upstream request failed")
	default:
		s.logger.Error().Err(err).Str("correlationId", correlationID(r.Context())).Msg("unhandled error")
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
