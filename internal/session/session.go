package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

// DefaultTTL is how long a dashboard session stays valid.
const DefaultTTL = 24 * time.Hour

// Session is the server-side identity established at Google sign-in.
// It deliberately has no fields for the case-management provider: those
// tokens live in the browser and arrive per-request via the
// X-Clio-Token header, never inside the session payload.
type Session struct {
	UserID            string
	Email             string
	Name              string
	Picture           string
	GoogleAccessToken string
	ExpiresAt         time.Time
}

// Manager issues and validates signed session tokens
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a session manager with the default TTL
func NewManager(secret []byte) *Manager {
	return &Manager{secret: secret, ttl: DefaultTTL}
}

// NewManagerWithTTL creates a session manager with a custom TTL
func NewManagerWithTTL(secret []byte, ttl time.Duration) *Manager {
	return &Manager{secret: secret, ttl: ttl}
}

// Issue signs a session token carrying the Google identity and access token
func (m *Manager) Issue(s *Session) (string, error) {
	expiresAt := time.Now().Add(m.ttl)
	s.ExpiresAt = expiresAt

	claims := jwt.MapClaims{
		"sub":                 s.UserID,
		"email":               s.Email,
		"name":                s.Name,
		"picture":             s.Picture,
		"google_access_token": s.GoogleAccessToken,
		"exp":                 expiresAt.Unix(),
		"iat":                 time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses a session token and returns the session it carries
func (m *Manager) Validate(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	s := &Session{
		UserID:            stringClaim(claims, "sub"),
		Email:             stringClaim(claims, "email"),
		Name:              stringClaim(claims, "name"),
		Picture:           stringClaim(claims, "picture"),
		GoogleAccessToken: stringClaim(claims, "google_access_token"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}

	if s.UserID == "" {
		return nil, ErrInvalidToken
	}
	return s, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
