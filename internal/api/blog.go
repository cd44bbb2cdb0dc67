package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"blog-backend/internal/blogstore"
	"blog-backend/internal/models"
)

type BlogHandler struct {
	store *blogstore.Store
}

func NewBlogHandler(store *blogstore.Store) *BlogHandler {
	return &BlogHandler{store: store}
}

func (h *BlogHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	pc, err := h.store.GetPosts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read posts data")
		return
	}
	writeJSON(w, http.StatusOK, pc)
}

func (h *BlogHandler) SavePosts(w http.ResponseWriter, r *http.Request) {
	var pc models.PostCollection
	if err := json.NewDecoder(r.Body).Decode(&pc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.store.ReplacePosts(pc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *BlogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	rawID := r.URL.Query().Get("id")
	if rawID == "" {
		writeError(w, http.StatusBadRequest, "Post ID is required")
		return
	}
	id, err := strconv.Atoi(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	if err := h.store.DeletePost(id); err != nil {
		if errors.Is(err, blogstore.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post deleted successfully",
	})
}

func (h *BlogHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	raw, err := h.store.GetComments()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read comments")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (h *BlogHandler) SaveComments(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.store.ReplaceComments(body); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save comments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *BlogHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostID int `json:"postId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.PostID == 0 {
		writeError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	views, err := h.store.IncrementViews(req.PostID)
	if err != nil {
		if errors.Is(err, blogstore.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"views":   views,
	})
}
