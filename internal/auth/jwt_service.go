package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "tasktracker/internal/errors"
)

const (
	// TokenTTL is the fixed lifetime of an issued token.
	TokenTTL = 10 * time.Hour
	// MinSecretLength is the shortest HMAC secret accepted, in bytes.
	MinSecretLength = 32
)

// ErrWeakSecret is returned when the signing secret is shorter than MinSecretLength.
var ErrWeakSecret = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)

// Claims represents JWT claims. The subject carries the user's email.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option customizes a TokenService.
type Option func(*TokenService)

// WithClock replaces the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a token service with the given secret.
func NewTokenService(secret string, opts ...Option) (*TokenService, error) {
	if len([]byte(secret)) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	s := &TokenService{
		secret: []byte(secret),
		now:    time.Now,
		// Expiry is checked against s.now, not the library clock.
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue generates a signed token for the given email.
func (s *TokenService) Issue(email string) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses a token and checks its signature and expiry.
// An expired token reports ErrExpiredToken whether or not its signature is
// valid; a signature mismatch reports ErrInvalidSignature; anything else
// is ErrMalformedToken.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, s.keyFunc)

	var vErr *jwt.ValidationError
	if err != nil && (!errors.As(err, &vErr) || vErr.Errors&jwt.ValidationErrorMalformed != 0) {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiration", apperrors.ErrMalformedToken)
	}
	if s.expired(claims) {
		return nil, fmt.Errorf("%w: expired at %s", apperrors.ErrExpiredToken, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	if err != nil {
		if vErr.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}
	return claims, nil
}

// ExtractSubject returns the subject (email) of a token.
func (s *TokenService) ExtractSubject(tokenString string) (string, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValidFor reports whether the token belongs to expectedSubject and has
// not expired. Expiry is re-read from the token on every call.
func (s *TokenService) IsValidFor(tokenString, expectedSubject string) bool {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject && !s.expired(claims)
}

// RemainingTTL returns how long the claims stay valid, never negative.
func (s *TokenService) RemainingTTL(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	if d := claims.ExpiresAt.Time.Sub(s.now()); d > 0 {
		return d
	}
	return 0
}

func (s *TokenService) expired(claims *Claims) bool {
	return s.now().After(claims.ExpiresAt.Time)
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return s.secret, nil
}
