// Package security issues the service tokens this engine presents to its
// HTTP collaborators (workflow orchestrator, template engine).
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSecret is returned when a provider is constructed without a secret.
var ErrNoSecret = errors.New("service token secret is empty")

// ServiceClaims holds JWT claims for a service-to-service token.
type ServiceClaims struct {
	jwt.RegisteredClaims
	Service string `json:"service"`
}

// ServiceTokenProvider issues short-lived HS256 tokens identifying this
// engine to downstream collaborators. Tokens are bearer-only; collaborators
// validate issuer and expiry.
type ServiceTokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewServiceTokenProvider returns a provider signing with the given shared
// secret. ttl bounds each token's lifetime.
func NewServiceTokenProvider(secret, issuer string, ttl time.Duration) (*ServiceTokenProvider, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ServiceTokenProvider{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue returns a signed token naming the calling service.
func (p *ServiceTokenProvider) Issue(service string) (string, error) {
	now := time.Now().UTC()
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
		Service: service,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
