package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"blog-backend/internal/models"
)

// BootstrapPassword is the password of the admin record created on a cold
// start with no users file. The record carries mustChangePassword, so every
// mutating route stays locked until the operator rotates it.
const (
	BootstrapUsername = "admin"
	BootstrapPassword = "cbdt2025"
)

type userFile struct {
	Users []models.User `json:"users"`
}

// Store is the file-backed credential store. Every operation loads the whole
// collection, mutates it in memory and rewrites the file via rename, with a
// mutex serializing the load-mutate-save window so concurrent handlers
// cannot lose each other's updates.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.bootstrap(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) bootstrap() error {
	hash, err := HashPassword(BootstrapPassword)
	if err != nil {
		return err
	}

	admin := models.User{
		ID:                 1,
		Username:           BootstrapUsername,
		PasswordHash:       hash,
		Role:               models.RoleAdmin,
		Permissions:        []string{"read", "write", "admin"},
		Email:              "admin@example.com",
		CreatedAt:          time.Now().UTC().Format(time.RFC3339),
		IsActive:           true,
		MustChangePassword: true,
	}

	return s.save(userFile{Users: []models.User{admin}})
}

func (s *Store) load() (userFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return userFile{}, nil
		}
		return userFile{}, fmt.Errorf("failed to read users file: %w", err)
	}

	var uf userFile
	if err := json.Unmarshal(data, &uf); err != nil {
		return userFile{}, fmt.Errorf("failed to parse users file: %w", err)
	}
	return uf, nil
}

// save writes to a temp file in the same directory and renames it over the
// store, so readers never observe a torn write and a failed write leaves the
// previous state intact.
func (s *Store) save(uf userFile) error {
	data, err := json.MarshalIndent(uf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace users file: %w", err)
	}
	return nil
}

// FindByUsername returns the active user with the given name, or nil.
func (s *Store) FindByUsername(username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uf, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range uf.Users {
		if uf.Users[i].Username == username && uf.Users[i].IsActive {
			u := uf.Users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// FindByID returns the active user with the given id, or nil.
func (s *Store) FindByID(id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uf, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range uf.Users {
		if uf.Users[i].ID == id && uf.Users[i].IsActive {
			u := uf.Users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// Add creates a user with the next sequential id. Username uniqueness is
// checked against every record, active or not.
func (s *Store) Add(req models.NewUserRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uf, err := s.load()
	if err != nil {
		return nil, err
	}

	nextID := 1
	for i := range uf.Users {
		if uf.Users[i].Username == req.Username {
			return nil, ErrUsernameTaken
		}
		if uf.Users[i].ID >= nextID {
			nextID = uf.Users[i].ID + 1
		}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	permissions := req.Permissions
	if len(permissions) == 0 {
		permissions = []string{"read"}
	}

	user := models.User{
		ID:           nextID,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
		Permissions:  permissions,
		Email:        req.Email,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		IsActive:     true,
	}

	uf.Users = append(uf.Users, user)
	if err := s.save(uf); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword overwrites the hash for the matching id and clears the
// must-change flag. Returns false when no record matches.
func (s *Store) UpdatePassword(id int, newPassword string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uf, err := s.load()
	if err != nil {
		return false, err
	}

	for i := range uf.Users {
		if uf.Users[i].ID == id {
			hash, err := HashPassword(newPassword)
			if err != nil {
				return false, err
			}
			uf.Users[i].PasswordHash = hash
			uf.Users[i].MustChangePassword = false
			if err := s.save(uf); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// UpdateLastLogin stamps the user's last login time. Callers treat failures
// as non-fatal.
func (s *Store) UpdateLastLogin(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uf, err := s.load()
	if err != nil {
		return err
	}

	for i := range uf.Users {
		if uf.Users[i].ID == id {
			now := time.Now().UTC().Format(time.RFC3339)
			uf.Users[i].LastLogin = &now
			return s.save(uf)
		}
	}
	return nil
}

// SetActive toggles the active flag. Users are never hard-deleted.
func (s *Store) SetActive(id int, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uf, err := s.load()
	if err != nil {
		return err
	}

	for i := range uf.Users {
		if uf.Users[i].ID == id {
			uf.Users[i].IsActive = active
			return s.save(uf)
		}
	}
	return ErrUserNotFound
}

// All returns every record with password hashes blanked.
func (s *Store) All() ([]models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uf, err := s.load()
	if err != nil {
		return nil, err
	}

	users := make([]models.PublicUser, 0, len(uf.Users))
	for i := range uf.Users {
		users = append(users, uf.Users[i].Public())
	}
	return users, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
