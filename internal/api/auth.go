package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"blog-backend/internal/auth"
	"blog-backend/internal/models"
)

type AuthHandler struct {
	authSvc *auth.Service
}

func NewAuthHandler(authSvc *auth.Service) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	resp, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// verifiedUser is the token claims merged with the freshly resolved isAdmin
// flag.
type verifiedUser struct {
	ID                 int      `json:"id"`
	Username           string   `json:"username"`
	Role               string   `json:"role"`
	Permissions        []string `json:"permissions"`
	Iat                int64    `json:"iat"`
	Exp                int64    `json:"exp"`
	IsAdmin            bool     `json:"isAdmin"`
	MustChangePassword bool     `json:"mustChangePassword,omitempty"`
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	v := verifiedUser{
		ID:                 user.Claims.ID,
		Username:           user.Claims.Username,
		Role:               user.Claims.Role,
		Permissions:        user.Claims.Permissions,
		IsAdmin:            user.IsAdmin,
		MustChangePassword: user.MustChangePassword,
	}
	if user.Claims.IssuedAt != nil {
		v.Iat = user.Claims.IssuedAt.Unix()
	}
	if user.Claims.ExpiresAt != nil {
		v.Exp = user.Claims.ExpiresAt.Unix()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  v,
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req models.PasswordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Old password and new password are required")
		return
	}
	if len(req.NewPassword) < 6 {
		writeError(w, http.StatusBadRequest, "New password must be at least 6 characters")
		return
	}

	if err := h.authSvc.ChangePassword(user.Claims.ID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) || errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated successfully",
	})
}
