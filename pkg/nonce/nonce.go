package nonce

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, forged or mismatched tokens
	ErrInvalidToken = errors.New("invalid security token")
	// ErrExpiredToken is returned once the token lifetime has passed
	ErrExpiredToken = errors.New("expired security token")
)

// ActionGallery is the only action gallery tokens are minted for
const ActionGallery = "io_gallery"

// UploadPolicy is the per-instance upload policy fixed at render time.
// Binding it into the token keeps the server from trusting client-sent policy fields.
type UploadPolicy struct {
	Enabled        bool   `json:"on"`
	ReviewRequired bool   `json:"review"`
	Category       string `json:"cat,omitempty"`
	MaxSize        int64  `json:"max,omitempty"`
	KeyRequired    bool   `json:"key,omitempty"`
}

// Claims - gallery security token payload
type Claims struct {
	jwt.RegisteredClaims
	Action string        `json:"act"`
	Upload *UploadPolicy `json:"up,omitempty"`
}

// Instance returns the gallery instance the token was minted for
func (c *Claims) Instance() string {
	return c.Subject
}

// Manager issues and verifies HMAC-signed gallery tokens
type Manager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewManager creates a Manager; ttl bounds how long a rendered page stays usable
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secretKey: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for one gallery instance
func (m *Manager) Issue(instance string, policy *UploadPolicy) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   instance,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Action: ActionGallery,
		Upload: policy,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify checks signature, expiry and action
//
//nolint:dupl // JWT 검증 로직은 표준 패턴을 따르므로 유사함
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Action != ActionGallery || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
