package server

import (
	"encoding/json"
	"net/http"
)

// HealthHandler answers liveness probes. No profile resolution, no auth.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Subject   string `json:"subject"`
	ExpiresAt int64  `json:"expiresAt"`
	ProfileID string `json:"profileId"`
}

// LoginHandler runs the user-identity flow and answers with a session token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.resolveProfile(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "malformed request body")
			return
		}

		result, err := s.sessions.Login(r.Context(), profile, req.Username, req.Password, req.Email)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, loginResponse{
			Token:     result.Token,
			Subject:   result.Subject,
			ExpiresAt: result.ExpiresAt,
			ProfileID: profile.ID,
		})
	}
}

// LogoutHandler discards the session behind the presented token. A token
// that no longer validates still answers 204; there is nothing to revoke.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			s.writeError(w, r, http.StatusUnauthorized, "missing session token")
			return
		}
		claims, err := s.sessions.Validate(raw)
		if err != nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err := s.sessions.Logout(claims.Subject); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
