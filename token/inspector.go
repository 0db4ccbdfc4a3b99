package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token does not have three dot-separated
// segments or its payload fails to decode. Callers treat malformed exactly
// like expired: the check fails closed.
var ErrMalformed = errors.New("malformed token")

// Claims is the decoded payload subset the guard cares about. ExpiresAt is
// the zero time when the token carries no exp claim.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

type rawClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Config defines a public type used by goguard APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	// Leeway widens the expiry comparison. Zero keeps the strict rule: a
	// token is expired iff exp exists and is before now.
	Leeway time.Duration
	// Now overrides the clock; nil means time.Now. Tests use it to pin
	// the expiry boundary.
	Now func() time.Time
}

// Inspector decodes token payloads without verifying signatures.
type Inspector struct {
	config Config
}

// NewInspector creates an Inspector. A nil-equivalent Config is valid.
func NewInspector(cfg Config) *Inspector {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Inspector{config: cfg}
}

// Decode parses the token's structure and payload without validating any
// claim. Wrong segment count and undecodable payloads return
// [ErrMalformed].
func (i *Inspector) Decode(raw string) (*Claims, error) {
	parser := jwt.NewParser()
	var claims rawClaims
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return nil, ErrMalformed
	}

	out := &Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Live reports whether the token passes the local liveness check:
// structurally valid and not expired. A missing exp claim counts as live;
// a malformed token never does.
func (i *Inspector) Live(raw string) bool {
	claims, err := i.Decode(raw)
	if err != nil {
		return false
	}
	if claims.ExpiresAt.IsZero() {
		return true
	}
	return !claims.ExpiresAt.Add(i.config.Leeway).Before(i.config.Now())
}
