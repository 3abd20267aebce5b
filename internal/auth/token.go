package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// DefaultTokenTTL is how long an access token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and payloads
	// failing validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is kept apart for logging; callers should surface it
	// exactly like ErrInvalidToken.
	ErrTokenExpired = errors.New("token expired")
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	ttl := DefaultTokenTTL
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims describes JWT payload.
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a JWT for the payload.
func (tm *TokenManager) GenerateToken(payload domain.TokenPayload) (string, time.Time, error) {
	if err := validatePayload(payload); err != nil {
		return "", time.Time{}, err
	}
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		UserID: payload.UserID,
		Email:  payload.Email,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates signature, expiry and payload shape.
func (tm *TokenManager) ParseToken(tokenStr string) (domain.TokenPayload, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenPayload{}, ErrTokenExpired
		}
		return domain.TokenPayload{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.TokenPayload{}, ErrInvalidToken
	}
	payload := domain.TokenPayload{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
	if err := validatePayload(payload); err != nil {
		return domain.TokenPayload{}, ErrInvalidToken
	}
	return payload, nil
}

func validatePayload(p domain.TokenPayload) error {
	if p.UserID == "" || p.Email == "" || !p.Role.Valid() {
		return ErrInvalidToken
	}
	return nil
}
