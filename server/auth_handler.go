package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"Melodix/core/auth"
	"Melodix/logger"
)

type contextKey string

const usernameKey contextKey = "username"

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler exchanges the admin credentials for a token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.AuthEnabled() {
		writeError(w, http.StatusNotFound, "Authentication is not enabled", nil)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required", nil)
		return
	}

	if req.Username != h.cfg.AdminUser || !auth.CheckPasswordHash(req.Password, h.cfg.AdminPasswordHash) {
		logger.Warn("[Login] rejected credentials", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	token, err := h.tokens.Issue(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error issuing token", err)
		return
	}

	logger.Info("[Login] admin signed in", logger.String("username", req.Username))
	writeOK(w, http.StatusOK, "", envelope{"token": token})
}

// AuthMiddleware requires a valid bearer token when authentication is
// enabled and is a pass-through otherwise.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.AuthEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required", nil)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format", nil)
			return
		}

		claims, err := h.tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// UsernameFromContext returns the authenticated user, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok
}
