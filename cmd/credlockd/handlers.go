package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	credlock "github.com/credlock/credlock"
	"github.com/credlock/credlock/middleware"
	"github.com/credlock/credlock/userstore"
)

type handlers struct {
	engine *credlock.Engine
	store  *userstore.Postgres
	logger *slog.Logger
}

type credentialsRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshCredential string `json:"refresh_credential"`
}

type changePasswordRequest struct {
	Identifier  string `json:"identifier"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type tokenResponse struct {
	AccessToken       string `json:"access_token"`
	RefreshCredential string `json:"refresh_credential"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.engine.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:       pair.AccessToken,
		RefreshCredential: pair.RefreshCredential,
	})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.engine.Refresh(r.Context(), req.RefreshCredential)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:       pair.AccessToken,
		RefreshCredential: pair.RefreshCredential,
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.engine.Logout(r.Context(), req.RefreshCredential); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) logoutAll(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		h.writeError(w, credlock.ErrUnauthorized)
		return
	}

	if err := h.engine.LogoutAll(r.Context(), res.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.engine.Register(r.Context(), credlock.CreateAccountRequest{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id":            res.UserID,
		"access_token":       res.AccessToken,
		"refresh_credential": res.RefreshCredential,
	})
}

func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.engine.ChangePassword(r.Context(), req.Identifier, req.OldPassword, req.NewPassword); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		h.writeError(w, credlock.ErrUnauthorized)
		return
	}

	if err := h.engine.DeleteAccount(r.Context(), res.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		h.writeError(w, credlock.ErrUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":    res.UserID,
		"family_id":  res.FamilyID,
		"session_id": res.SessionID,
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "cache unavailable"})
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, credlock.ErrInvalidCredentials),
		errors.Is(err, credlock.ErrUnauthorized),
		errors.Is(err, credlock.ErrTokenExpired),
		errors.Is(err, credlock.ErrSessionInvalid),
		errors.Is(err, credlock.ErrReplayDetected):
		status = http.StatusUnauthorized
	case errors.Is(err, credlock.ErrLoginRateLimited),
		errors.Is(err, credlock.ErrRefreshRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, credlock.ErrAccountExists):
		status = http.StatusConflict
	case errors.Is(err, credlock.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, credlock.ErrPasswordPolicy),
		errors.Is(err, credlock.ErrPasswordReuse),
		errors.Is(err, credlock.ErrAccountCreationInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, credlock.ErrAccountCreationDisabled):
		status = http.StatusForbidden
	case errors.Is(err, credlock.ErrStoreUnavailable),
		errors.Is(err, credlock.ErrCacheUnavailable),
		errors.Is(err, credlock.ErrSessionCreationFailed),
		errors.Is(err, credlock.ErrSessionInvalidationFailed):
		status = http.StatusServiceUnavailable
	default:
		h.logger.Error("unhandled engine error", "error", err)
	}

	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(credlock.WithClientIP(r.Context(), host)))
	})
}
