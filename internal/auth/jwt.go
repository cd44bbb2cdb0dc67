package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"blog-backend/internal/models"
)

// Claims is the token payload: identity and authorization data plus the
// registered iat/exp timestamps.
type Claims struct {
	ID          int      `json:"id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 bearer tokens. There is exactly one
// active secret per process; rotating it invalidates every outstanding token.
type Manager struct {
	secretKey []byte
	expiry    time.Duration
}

func NewManager(secretKey []byte, expiry time.Duration) *Manager {
	return &Manager{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

func (m *Manager) DefaultExpiry() time.Duration {
	return m.expiry
}

// Issue signs a token for the user with iat=now and exp=now+ttl.
func (m *Manager) Issue(user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:          user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature before anything in the payload is trusted,
// then the expiry, and returns the decoded claims.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrMalformedToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	return claims, nil
}
