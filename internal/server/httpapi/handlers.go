package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"authkeeper/internal/common"
	"authkeeper/internal/server/services"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type googleLoginRequest struct {
	Code string `json:"code"`
}

type tokenPairResponse struct {
	Message      string `json:"message,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type identityResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func pairResponse(pair *services.TokenPair, msg string) tokenPairResponse {
	return tokenPairResponse{
		Message:      msg,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMalformedInput):
			writeError(w, http.StatusBadRequest, "email and password are required")
		case errors.Is(err, common.ErrorAlreadyExists):
			writeError(w, http.StatusBadRequest, "user already exists")
		default:
			s.logger.Error(r.Context(), "registration failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "error registering user")
		}
		return
	}

	s.logger.Info(r.Context(), "user registered", "email", req.Email)
	writeJSON(w, http.StatusCreated, pairResponse(pair, "user registered successfully"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMalformedInput):
			writeError(w, http.StatusBadRequest, "email and password are required")
		case errors.Is(err, common.ErrorUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			s.logger.Error(r.Context(), "login failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "error logging in")
		}
		return
	}

	writeJSON(w, http.StatusOK, pairResponse(pair, ""))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.tokens.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMalformedInput):
			writeError(w, http.StatusBadRequest, "refresh token is required")
		case errors.Is(err, common.ErrInvalidSignature),
			errors.Is(err, common.ErrTokenExpired),
			errors.Is(err, common.ErrUnknownToken):
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
		default:
			s.logger.Error(r.Context(), "rotation failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "error refreshing token")
		}
		return
	}

	writeJSON(w, http.StatusOK, pairResponse(pair, ""))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.tokens.Revoke(r.Context(), req.RefreshToken); err != nil {
		switch {
		case errors.Is(err, common.ErrMalformedInput):
			writeError(w, http.StatusBadRequest, "refresh token is required")
		default:
			s.logger.Error(r.Context(), "logout failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "error logging out")
		}
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out successfully"})
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeError(w, http.StatusServiceUnavailable, "federated login is not configured")
		return
	}

	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "authorization code is required")
		return
	}

	profile, err := s.google.Exchange(r.Context(), req.Code)
	if err != nil {
		s.logger.Warn(r.Context(), "federated exchange failed", "error", err.Error())
		writeError(w, http.StatusUnauthorized, "federated login failed")
		return
	}

	pair, err := s.users.FederatedLogin(r.Context(), profile)
	if err != nil {
		s.logger.Error(r.Context(), "federated login failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "error logging in")
		return
	}

	writeJSON(w, http.StatusOK, pairResponse(pair, ""))
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.tokens.RevokeAll(r.Context(), identity.ID); err != nil {
		s.logger.Error(r.Context(), "logout-all failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "error logging out")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out everywhere"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, identityResponse{
		ID:    identity.ID,
		Name:  identity.Name,
		Email: identity.Email,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := s.tokens.ActiveSession(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "no active session")
			return
		}
		s.logger.Error(r.Context(), "session lookup failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "error looking up session")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{ExpiresAt: session.ExpiresAt})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}
