package auth

import (
	"log"
	"net/http"
	"strings"

	"blog-backend/internal/models"
)

// Service combines token verification with live credential-store lookups to
// produce per-request authorization decisions.
type Service struct {
	store  *Store
	tokens *Manager
}

func NewService(store *Store, tokens *Manager) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
	}
}

func (s *Service) Store() *Store {
	return s.store
}

// AuthUser is the outcome of a successful authentication. IsAdmin and
// MustChangePassword come from the stored record, not the token, so role
// downgrades and deactivation bite without waiting for token expiry.
type AuthUser struct {
	Claims             *Claims
	IsAdmin            bool
	MustChangePassword bool
}

// Login verifies credentials and issues a token. Unknown usernames and wrong
// passwords both come back as ErrInvalidCredentials so the response carries
// no enumeration signal.
func (s *Service) Login(username, password string) (*models.LoginResponse, error) {
	user, err := s.store.FindByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Best effort; a failed stamp must not fail the login.
	if err := s.store.UpdateLastLogin(user.ID); err != nil {
		log.Printf("failed to update last login for %s: %v", user.Username, err)
	}

	token, err := s.tokens.Issue(user, s.tokens.DefaultExpiry())
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Success:            true,
		Token:              token,
		User:               user.Public(),
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// AuthenticateRequest resolves the Authorization header into an AuthUser.
// The signature is checked before the claims are inspected, and the user is
// re-resolved from the store afterwards.
func (s *Service) AuthenticateRequest(r *http.Request) (*AuthUser, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, ErrNoToken
	}

	claims, err := s.tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByID(claims.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &AuthUser{
		Claims:             claims,
		IsAdmin:            user.Role == models.RoleAdmin,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// ChangePassword requires proof of the current password before accepting the
// new one.
func (s *Service) ChangePassword(userID int, oldPassword, newPassword string) error {
	user, err := s.store.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if !VerifyPassword(oldPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	updated, err := s.store.UpdatePassword(userID, newPassword)
	if err != nil {
		return err
	}
	if !updated {
		return ErrUserNotFound
	}
	return nil
}
