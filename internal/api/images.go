package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"blog-backend/internal/config"
	"blog-backend/internal/models"
	"blog-backend/internal/multipart"
	"blog-backend/internal/storage"
)

type ImageHandler struct {
	backend      storage.Backend
	maxBytes     int64
	allowedTypes map[string]bool
}

func NewImageHandler(backend storage.Backend, cfg *config.Config) *ImageHandler {
	allowed := make(map[string]bool, len(cfg.Upload.AllowedTypes))
	for _, t := range cfg.Upload.AllowedTypes {
		allowed[t] = true
	}
	return &ImageHandler{
		backend:      backend,
		maxBytes:     cfg.MaxUploadBytes(),
		allowedTypes: allowed,
	}
}

// illegalFilename rejects anything that could escape the upload directory.
func illegalFilename(name string) bool {
	return name == "" ||
		strings.Contains(name, "/") ||
		strings.Contains(name, "\\") ||
		strings.Contains(name, "..")
}

func boundaryFrom(r *http.Request) (string, int, string) {
	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "multipart/form-data") {
		return "", http.StatusBadRequest, "Content-Type must be multipart/form-data"
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["boundary"] == "" {
		return "", http.StatusBadRequest, "Missing boundary in Content-Type"
	}
	return params["boundary"], 0, ""
}

// readBody buffers the whole request body; the multipart parser works on
// byte offsets, not streams. The cap leaves headroom above the per-file
// limit for boundaries and part headers.
func (h *ImageHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1024*1024)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, sizeLimitError(h.maxBytes))
		} else {
			writeError(w, http.StatusBadRequest, "Failed to read request body")
		}
		return nil, false
	}
	return body, true
}

func sizeLimitError(maxBytes int64) string {
	return fmt.Sprintf("Image size too large. Maximum size is %dMB", maxBytes/(1024*1024))
}

// safeFilename builds a collision-resistant name, preserving only the
// original extension.
func safeFilename(originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate filename: %w", err)
	}
	return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext), nil
}

// UploadImage accepts one image via multipart/form-data, enforces the type
// allow-list and the size cap before anything touches storage, and stores it
// under a generated name.
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	boundary, status, msg := boundaryFrom(r)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	parts, err := multipart.Parse(body, boundary)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to process upload")
		return
	}

	var image *multipart.Part
	for i := range parts {
		if parts[i].Filename != "" && strings.HasPrefix(parts[i].ContentType, "image/") {
			image = &parts[i]
			break
		}
	}
	if image == nil {
		writeError(w, http.StatusBadRequest, "No image file found")
		return
	}

	if !h.allowedTypes[image.ContentType] {
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported image format. Allowed: jpg, png, gif, webp")
		return
	}
	if int64(len(image.Data)) > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, sizeLimitError(h.maxBytes))
		return
	}

	filename, err := safeFilename(image.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save image")
		return
	}

	if err := h.backend.Save(filename, image.Data); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save image")
		return
	}

	imageURL := "/uploads/" + filename
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"imageUrl":     imageURL,
		"url":          imageURL,
		"filename":     filename,
		"originalName": image.Filename,
		"size":         len(image.Data),
		"contentType":  image.ContentType,
	})
}

// BulkUpload stores every file part under its client-supplied name. Names
// that could leave the upload directory are skipped.
func (h *ImageHandler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	boundary, status, msg := boundaryFrom(r)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	parts, err := multipart.Parse(body, boundary)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to process upload")
		return
	}

	saved := 0
	for _, part := range parts {
		if part.Filename == "" || len(part.Data) == 0 || illegalFilename(part.Filename) {
			continue
		}
		if err := h.backend.Save(part.Filename, part.Data); err != nil {
			continue
		}
		saved++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"saved":   saved,
	})
}

func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	files, err := h.backend.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read image directory")
		return
	}

	type listed struct {
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	}
	result := make([]listed, 0, len(files))
	for _, f := range files {
		result = append(result, listed{Filename: f.Name, Size: f.Size})
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	filename := pathParam(r, "filename")
	if illegalFilename(filename) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	exists, err := h.backend.Exists(filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	if err := h.backend.Delete(filename); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ImageHandler) RenameImage(w http.ResponseWriter, r *http.Request) {
	oldName := pathParam(r, "filename")
	if illegalFilename(oldName) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	var req struct {
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if illegalFilename(req.NewName) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	exists, err := h.backend.Exists(oldName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rename file")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Source file not found")
		return
	}

	taken, err := h.backend.Exists(req.NewName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rename file")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "Target file already exists")
		return
	}

	if err := h.backend.Rename(oldName, req.NewName); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rename file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".webp": true, ".bmp": true,
}

// GalleryList enumerates uploaded images newest-first, sniffing pixel
// dimensions from the file headers where the format allows it.
func (h *ImageHandler) GalleryList(w http.ResponseWriter, r *http.Request) {
	files, err := h.backend.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read image directory")
		return
	}

	images := []models.ImageInfo{}
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !imageExtensions[ext] {
			continue
		}

		info := models.ImageInfo{
			Filename:   f.Name,
			URL:        "/uploads/" + f.Name,
			Size:       f.Size,
			UploadTime: f.ModTime.UTC().Format(time.RFC3339),
			Type:       strings.TrimPrefix(ext, "."),
		}

		// Dimension sniffing is best effort; unreadable files still list.
		if data, err := h.backend.Read(f.Name); err == nil {
			if width, height, ok := imageDimensions(data, f.Name); ok {
				info.Width = width
				info.Height = height
			}
		}
		images = append(images, info)
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].UploadTime > images[j].UploadTime
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"images":  images,
		"total":   len(images),
	})
}

type deleteResult struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// GalleryDelete removes a batch of uploads, reporting per-file outcomes.
// Names carrying path separators or dot-dot segments are refused before any
// filesystem access.
func (h *ImageHandler) GalleryDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filenames []string `json:"filenames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Filenames) == 0 {
		writeError(w, http.StatusBadRequest, "A list of filenames is required")
		return
	}

	results := make([]deleteResult, 0, len(req.Filenames))
	deleted := 0
	for _, filename := range req.Filenames {
		res := deleteResult{Filename: filename}

		switch {
		case illegalFilename(filename):
			res.Error = "invalid filename"
		default:
			exists, err := h.backend.Exists(filename)
			switch {
			case err != nil:
				res.Error = "Failed to delete"
			case !exists:
				res.Error = "File not found"
			case h.backend.Delete(filename) != nil:
				res.Error = "Failed to delete"
			default:
				res.Success = true
				deleted++
			}
		}
		results = append(results, res)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": deleted,
		"failed":  len(results) - deleted,
		"results": results,
		"message": fmt.Sprintf("Deleted %d file(s), %d failed", deleted, len(results)-deleted),
	})
}

func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}
