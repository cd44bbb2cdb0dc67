package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"blog-backend/internal/auth"
	"blog-backend/internal/blogstore"
	"blog-backend/internal/config"
	"blog-backend/internal/storage"
)

type testEnv struct {
	router    http.Handler
	store     *auth.Store
	usersFile string
	uploadDir string
	staticDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	uploadDir := t.TempDir()
	staticDir := t.TempDir()

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.Expiry = "24h"
	cfg.Storage.Type = "local"
	cfg.Upload.Dir = uploadDir
	cfg.Upload.MaxSizeMB = 5
	cfg.Upload.AllowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}
	cfg.Static.Root = staticDir
	cfg.Data.Dir = dataDir
	cfg.Auth.UsersFile = filepath.Join(dataDir, "users.json")

	credStore, err := auth.NewStore(cfg.Auth.UsersFile)
	if err != nil {
		t.Fatalf("credential store: %v", err)
	}
	manager := auth.NewManager([]byte(cfg.JWT.SecretKey), 24*time.Hour)
	authSvc := auth.NewService(credStore, manager)

	blogStore, err := blogstore.New(dataDir)
	if err != nil {
		t.Fatalf("blog store: %v", err)
	}

	backend, err := storage.NewBackend(cfg)
	if err != nil {
		t.Fatalf("storage backend: %v", err)
	}

	router, err := NewRouter(authSvc, blogStore, backend, cfg)
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	return &testEnv{
		router:    router,
		store:     credStore,
		usersFile: cfg.Auth.UsersFile,
		uploadDir: uploadDir,
		staticDir: staticDir,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return e.do(t, method, path, token, bytes.NewReader(body), "application/json")
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &m); err != nil {
		t.Fatalf("json parse (%s): %v", resp.Body.String(), err)
	}
	return m
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", resp.Code, resp.Body.String())
	}
	token, _ := decodeBody(t, resp)["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token")
	}
	return token
}

// adminToken rotates the bootstrap password first, so the token is not
// blocked by the fresh-password gate.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	if _, err := e.store.UpdatePassword(1, "rotated-pass"); err != nil {
		t.Fatalf("rotate admin password: %v", err)
	}
	return e.login(t, auth.BootstrapUsername, "rotated-pass")
}

const testBoundary = "----WebKitFormBoundaryTest1234"

func multipartBody(fieldName, filename, contentType string, data []byte) (io.Reader, string) {
	var buf bytes.Buffer
	buf.WriteString("--" + testBoundary + "\r\n")
	buf.WriteString(`Content-Disposition: form-data; name="` + fieldName + `"; filename="` + filename + `"` + "\r\n")
	buf.WriteString("Content-Type: " + contentType + "\r\n\r\n")
	buf.Write(data)
	buf.WriteString("\r\n--" + testBoundary + "--\r\n")
	return &buf, "multipart/form-data; boundary=" + testBoundary
}

func TestLoginVerifyFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	token := env.login(t, auth.BootstrapUsername, auth.BootstrapPassword)

	resp := env.do(t, http.MethodGet, "/api/auth/verify", token, nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	if body["valid"] != true {
		t.Fatalf("expected valid=true, got %v", body)
	}
	user := body["user"].(map[string]any)
	if user["role"] != "admin" || user["isAdmin"] != true {
		t.Fatalf("unexpected verified user: %v", user)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	wrongPass := env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": auth.BootstrapUsername, "password": "wrong",
	})
	noUser := env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "ghost", "password": "wrong",
	})

	if wrongPass.Code != http.StatusUnauthorized || noUser.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", wrongPass.Code, noUser.Code)
	}
	if decodeBody(t, wrongPass)["error"] != "Invalid credentials" {
		t.Fatalf("unexpected error body: %s", wrongPass.Body.String())
	}
	// No enumeration signal.
	if wrongPass.Body.String() != noUser.Body.String() {
		t.Fatalf("credential errors differ: %s vs %s", wrongPass.Body.String(), noUser.Body.String())
	}
}

func TestVerifyWithoutToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/auth/verify", "", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if decodeBody(t, resp)["error"] != "No token provided" {
		t.Fatalf("unexpected error: %s", resp.Body.String())
	}
}

// A broken credential store during authentication is an infrastructure
// failure: the client gets a generic 500, never the underlying error text
// with its filesystem path.
func TestAuthenticateStoreFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	token := env.login(t, auth.BootstrapUsername, auth.BootstrapPassword)

	// Make every subsequent store read fail.
	if err := os.Remove(env.usersFile); err != nil {
		t.Fatalf("remove users file: %v", err)
	}
	if err := os.Mkdir(env.usersFile, 0o755); err != nil {
		t.Fatalf("replace users file with dir: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/auth/verify", token, nil, "")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d %s", resp.Code, resp.Body.String())
	}
	if decodeBody(t, resp)["error"] != "Authentication failed" {
		t.Fatalf("unexpected error body: %s", resp.Body.String())
	}
	if strings.Contains(resp.Body.String(), env.usersFile) {
		t.Fatalf("internal path leaked to client: %s", resp.Body.String())
	}
}

// The bootstrap credential only unlocks verify and password change until it
// is rotated.
func TestMustChangePasswordGate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	token := env.login(t, auth.BootstrapUsername, auth.BootstrapPassword)

	blocked := env.doJSON(t, http.MethodPost, "/api/blog/posts", token, map[string]any{"posts": []any{}})
	if blocked.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before rotation, got %d", blocked.Code)
	}
	if decodeBody(t, blocked)["error"] != "Password change required" {
		t.Fatalf("unexpected error: %s", blocked.Body.String())
	}

	rotate := env.doJSON(t, http.MethodPost, "/api/auth/password", token, map[string]string{
		"oldPassword": auth.BootstrapPassword,
		"newPassword": "fresh-pass-1",
	})
	if rotate.Code != http.StatusOK {
		t.Fatalf("password change: %d %s", rotate.Code, rotate.Body.String())
	}

	allowed := env.doJSON(t, http.MethodPost, "/api/blog/posts", token, map[string]any{"posts": []any{}})
	if allowed.Code != http.StatusOK {
		t.Fatalf("expected 200 after rotation, got %d %s", allowed.Code, allowed.Body.String())
	}
}

func TestPostsFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	save := env.doJSON(t, http.MethodPost, "/api/blog/posts", token, map[string]any{
		"posts":  []map[string]any{{"id": 1, "title": "First", "published": true}},
		"config": map[string]string{"title": "Blog"},
	})
	if save.Code != http.StatusOK {
		t.Fatalf("save posts: %d %s", save.Code, save.Body.String())
	}

	// Unauthenticated write must be rejected.
	anon := env.doJSON(t, http.MethodPost, "/api/blog/posts", "", map[string]any{"posts": []any{}})
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous post write, got %d", anon.Code)
	}

	views := env.doJSON(t, http.MethodPost, "/api/blog/views", "", map[string]int{"postId": 1})
	if views.Code != http.StatusOK {
		t.Fatalf("views: %d %s", views.Code, views.Body.String())
	}
	if got := decodeBody(t, views)["views"]; got != float64(1) {
		t.Fatalf("expected 1 view, got %v", got)
	}

	missing := env.doJSON(t, http.MethodPost, "/api/blog/views", "", map[string]int{"postId": 42})
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown post, got %d", missing.Code)
	}

	del := env.do(t, http.MethodDelete, "/api/blog/posts?id=1", token, nil, "")
	if del.Code != http.StatusOK {
		t.Fatalf("delete post: %d %s", del.Code, del.Body.String())
	}
	again := env.do(t, http.MethodDelete, "/api/blog/posts?id=1", token, nil, "")
	if again.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", again.Code)
	}
}

func TestCommentsArePublic(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	post := env.doJSON(t, http.MethodPost, "/api/blog/comments", "", map[string]any{
		"post-1": []map[string]string{{"author": "anon", "text": "hi"}},
	})
	if post.Code != http.StatusOK {
		t.Fatalf("comment write: %d %s", post.Code, post.Body.String())
	}

	get := env.do(t, http.MethodGet, "/api/blog/comments", "", nil, "")
	if get.Code != http.StatusOK || !strings.Contains(get.Body.String(), "post-1") {
		t.Fatalf("comment read: %d %s", get.Code, get.Body.String())
	}
}

func TestUsersAdminOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	adminTok := env.adminToken(t)

	create := env.doJSON(t, http.MethodPost, "/api/users", adminTok, map[string]string{
		"username": "reader", "password": "readerpw",
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", create.Code, create.Body.String())
	}

	dup := env.doJSON(t, http.MethodPost, "/api/users", adminTok, map[string]string{
		"username": "reader", "password": "other",
	})
	if dup.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate username, got %d", dup.Code)
	}

	list := env.do(t, http.MethodGet, "/api/users", adminTok, nil, "")
	if list.Code != http.StatusOK {
		t.Fatalf("list users: %d", list.Code)
	}
	if strings.Contains(list.Body.String(), "passwordHash") {
		t.Fatalf("password hashes leaked: %s", list.Body.String())
	}

	readerTok := env.login(t, "reader", "readerpw")
	forbidden := env.do(t, http.MethodGet, "/api/users", readerTok, nil, "")
	if forbidden.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", forbidden.Code)
	}
}

func TestUploadImage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	data := []byte("\x89PNG\r\n\x1a\nfakepixels")
	body, contentType := multipartBody("image", "photo.PNG", "image/png", data)

	resp := env.do(t, http.MethodPost, "/api/upload/image", token, body, contentType)
	if resp.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", resp.Code, resp.Body.String())
	}

	result := decodeBody(t, resp)
	filename, _ := result["filename"].(string)
	if !regexp.MustCompile(`^\d+_[0-9a-f]{16}\.png$`).MatchString(filename) {
		t.Fatalf("unexpected generated filename: %q", filename)
	}
	if result["originalName"] != "photo.PNG" {
		t.Fatalf("unexpected original name: %v", result["originalName"])
	}

	saved, err := os.ReadFile(filepath.Join(env.uploadDir, filename))
	if err != nil {
		t.Fatalf("saved file: %v", err)
	}
	if !bytes.Equal(saved, data) {
		t.Fatalf("saved data differs from upload")
	}
}

func TestUploadImage_Oversized(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	data := bytes.Repeat([]byte{0xAB}, 5*1024*1024+1)
	body, contentType := multipartBody("image", "big.png", "image/png", data)

	resp := env.do(t, http.MethodPost, "/api/upload/image", token, body, contentType)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d %s", resp.Code, resp.Body.String())
	}

	// Rejected before anything was written.
	entries, err := os.ReadDir(env.uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("upload dir not empty after rejection: %v", entries)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

// A body that fails to read for reasons other than the size cap is a client
// error, not an oversized upload.
func TestUploadImage_BodyReadFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	contentType := "multipart/form-data; boundary=" + testBoundary
	resp := env.do(t, http.MethodPost, "/api/upload/image", token, failingReader{}, contentType)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", resp.Code, resp.Body.String())
	}
	if decodeBody(t, resp)["error"] != "Failed to read request body" {
		t.Fatalf("unexpected error body: %s", resp.Body.String())
	}
}

func TestUploadImage_UnsupportedType(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	body, contentType := multipartBody("image", "page.svg", "image/svg+xml", []byte("<svg/>"))
	resp := env.do(t, http.MethodPost, "/api/upload/image", token, body, contentType)
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestUploadImage_MissingBoundary(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	resp := env.do(t, http.MethodPost, "/api/upload/image", token, strings.NewReader("x"), "multipart/form-data")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if decodeBody(t, resp)["error"] != "Missing boundary in Content-Type" {
		t.Fatalf("unexpected error: %s", resp.Body.String())
	}
}

func TestGalleryDelete_Traversal(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	resp := env.doJSON(t, http.MethodPost, "/api/gallery/delete", token, map[string]any{
		"filenames": []string{"../../etc/passwd"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("gallery delete: %d %s", resp.Code, resp.Body.String())
	}

	body := decodeBody(t, resp)
	if body["deleted"] != float64(0) {
		t.Fatalf("expected nothing deleted, got %v", body)
	}
	results := body["results"].([]any)
	first := results[0].(map[string]any)
	if first["success"] != false || first["error"] != "invalid filename" {
		t.Fatalf("unexpected per-file result: %v", first)
	}
}

func TestGalleryListAndDelete(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	// Minimal PNG header with IHDR dimensions at fixed offsets.
	png := make([]byte, 33)
	copy(png, "\x89PNG\r\n\x1a\n")
	binary.BigEndian.PutUint32(png[16:], 640)
	binary.BigEndian.PutUint32(png[20:], 480)
	if err := os.WriteFile(filepath.Join(env.uploadDir, "shot.png"), png, 0o644); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.uploadDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	list := env.do(t, http.MethodGet, "/api/gallery/list", token, nil, "")
	if list.Code != http.StatusOK {
		t.Fatalf("gallery list: %d %s", list.Code, list.Body.String())
	}
	body := decodeBody(t, list)
	if body["total"] != float64(1) {
		t.Fatalf("expected only image files listed, got %v", body)
	}
	img := body["images"].([]any)[0].(map[string]any)
	if img["filename"] != "shot.png" || img["width"] != float64(640) || img["height"] != float64(480) {
		t.Fatalf("unexpected image info: %v", img)
	}

	del := env.doJSON(t, http.MethodPost, "/api/gallery/delete", token, map[string]any{
		"filenames": []string{"shot.png", "missing.png"},
	})
	delBody := decodeBody(t, del)
	if delBody["deleted"] != float64(1) || delBody["failed"] != float64(1) {
		t.Fatalf("unexpected delete summary: %v", delBody)
	}
	if _, err := os.Stat(filepath.Join(env.uploadDir, "shot.png")); !os.IsNotExist(err) {
		t.Fatalf("file not removed")
	}
}

func TestImagesRenameAndDelete(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := env.adminToken(t)

	for _, name := range []string{"old.png", "taken.png"} {
		if err := os.WriteFile(filepath.Join(env.uploadDir, name), []byte("img"), 0o644); err != nil {
			t.Fatalf("seed upload: %v", err)
		}
	}

	conflict := env.doJSON(t, http.MethodPost, "/api/images/old.png/rename", token, map[string]string{"newName": "taken.png"})
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", conflict.Code)
	}

	evil := env.doJSON(t, http.MethodPost, "/api/images/old.png/rename", token, map[string]string{"newName": "../evil.png"})
	if evil.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for traversal name, got %d", evil.Code)
	}

	ok := env.doJSON(t, http.MethodPost, "/api/images/old.png/rename", token, map[string]string{"newName": "new.png"})
	if ok.Code != http.StatusOK {
		t.Fatalf("rename: %d %s", ok.Code, ok.Body.String())
	}

	missing := env.doJSON(t, http.MethodPost, "/api/images/old.png/rename", token, map[string]string{"newName": "x.png"})
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for renamed-away source, got %d", missing.Code)
	}

	del := env.do(t, http.MethodDelete, "/api/images/new.png", token, nil, "")
	if del.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", del.Code, del.Body.String())
	}
	delAgain := env.do(t, http.MethodDelete, "/api/images/new.png", token, nil, "")
	if delAgain.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", delAgain.Code)
	}
}

// Dispatch is a pure function of the registered routes.
func TestDispatchIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	first := env.do(t, http.MethodGet, "/api/blog/posts", "", nil, "")
	second := env.do(t, http.MethodGet, "/api/blog/posts", "", nil, "")
	if first.Code != second.Code || first.Body.String() != second.Body.String() {
		t.Fatalf("identical requests dispatched differently")
	}

	unknown := env.do(t, http.MethodGet, "/api/nope", "", nil, "")
	if unknown.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", unknown.Code)
	}
	if decodeBody(t, unknown)["error"] != "API endpoint not found" {
		t.Fatalf("unexpected body: %s", unknown.Body.String())
	}
}

func TestStaticServing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	if err := os.WriteFile(filepath.Join(env.staticDir, "index.html"), []byte("<h1>home</h1>"), 0o644); err != nil {
		t.Fatalf("seed static: %v", err)
	}
	// A file just outside the static root must stay unreachable.
	outside := filepath.Join(filepath.Dir(env.staticDir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("seed outside file: %v", err)
	}

	home := env.do(t, http.MethodGet, "/", "", nil, "")
	if home.Code != http.StatusOK || !strings.Contains(home.Body.String(), "home") {
		t.Fatalf("home page: %d %s", home.Code, home.Body.String())
	}
	if ct := home.Header().Get("Content-Type"); ct != "text/html" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	traversal := env.do(t, http.MethodGet, "/../secret.txt", "", nil, "")
	if traversal.Code == http.StatusOK || strings.Contains(traversal.Body.String(), "secret") {
		t.Fatalf("traversal leaked: %d %s", traversal.Code, traversal.Body.String())
	}

	if err := os.WriteFile(filepath.Join(env.uploadDir, "pic.gif"), []byte("GIF89a"), 0o644); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	upload := env.do(t, http.MethodGet, "/uploads/pic.gif", "", nil, "")
	if upload.Code != http.StatusOK || upload.Header().Get("Content-Type") != "image/gif" {
		t.Fatalf("upload serving: %d %s", upload.Code, upload.Header().Get("Content-Type"))
	}
}
