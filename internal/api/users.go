package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"blog-backend/internal/auth"
	"blog-backend/internal/models"
)

type UserHandler struct {
	store *auth.Store
}

func NewUserHandler(store *auth.Store) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
	})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.NewUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.store.Add(req)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    user.Public(),
	})
}
