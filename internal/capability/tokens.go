package capability

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clipvault/internal/services"
)

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = time.Hour

var (
	// ErrTokenExpired marks a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed marks a token that failed parsing or verification.
	ErrTokenMalformed = errors.New("token malformed")
)

type claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// Service signs and verifies capability tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTTL sets the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService builds a Service around secret.
func NewService(secret string, opts ...Option) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("capability: signing secret required")
	}
	s := &Service{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token granting retrieval of assetID.
func (s *Service) Issue(assetID string) (string, error) {
	if strings.TrimSpace(assetID) == "" {
		return "", services.New(services.KindInvalidRequest, "issue link", "video id required")
	}
	issued := s.now().Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ID: assetID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", services.Wrap(services.KindStore, "issue link", "sign token", err)
	}
	return signed, nil
}

// Redeem verifies token and returns the asset id it grants. Redeeming does not
// consume the token.
func (s *Service) Redeem(token string) (string, error) {
	const op = "redeem token"

	token = strings.TrimSpace(token)
	if token == "" {
		return "", services.Wrap(services.KindInvalidToken, op, "token required", ErrTokenMalformed)
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", services.Wrap(services.KindInvalidToken, op, "invalid or expired token", fmt.Errorf("%w: %w", ErrTokenExpired, err))
	default:
		return "", services.Wrap(services.KindInvalidToken, op, "invalid or expired token", fmt.Errorf("%w: %w", ErrTokenMalformed, err))
	}

	if strings.TrimSpace(parsed.ID) == "" {
		return "", services.Wrap(services.KindInvalidToken, op, "invalid or expired token", fmt.Errorf("%w: missing id claim", ErrTokenMalformed))
	}
	return parsed.ID, nil
}

// LinkFor renders the retrieval URL for id carrying token.
func LinkFor(baseURL, id, token string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return base + "/videos/" + url.PathEscape(id) + "?token=" + url.QueryEscape(token)
}
