package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two bearer token flavours. It is fixed at issuance
// and carried as a claim, so a refresh token can never pass as an access
// token or vice versa.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims are the signed contents of an issued token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Kind Kind   `json:"kind"`
}

// TokenVerifier is the read side of the issuer, consumed by the HTTP and
// channel authenticators.
//
//go:generate mockgen -destination=mocks/verifier_mock.go -package=mocks . TokenVerifier
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Issuer mints and verifies HS256-signed bearer tokens. It is stateless and
// safe for concurrent use: the only shared data is read-only key material.
//
// Issuance always signs with the current secret. Verification tries the
// current secret first and falls back to the optional previous secret, so a
// signing-key rotation forces no logouts: tokens signed before the rotation
// stay valid until they expire on their own.
type Issuer struct {
	secret     []byte
	previous   []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
}

type IssuerOption func(*Issuer)

// WithPreviousSecret keeps the prior signing secret valid for verification
// during a rotation grace window. It is never used for issuance.
func WithPreviousSecret(secret string) IssuerOption {
	return func(i *Issuer) {
		if secret != "" {
			i.previous = []byte(secret)
		}
	}
}

// WithLeeway grants clock-skew tolerance during claim validation.
// The default is zero.
func WithLeeway(d time.Duration) IssuerOption {
	return func(i *Issuer) { i.leeway = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration, opts ...IssuerOption) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	issuer := &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// IssueAccessToken mints a short-lived access token for the given subject.
func (i *Issuer) IssueAccessToken(userID, role string) (string, time.Time, error) {
	return i.issue(userID, role, KindAccess, i.accessTTL)
}

// IssueRefreshToken mints a long-lived refresh token for the given subject.
func (i *Issuer) IssueRefreshToken(userID, role string) (string, time.Time, error) {
	return i.issue(userID, role, KindRefresh, i.refreshTTL)
}

func (i *Issuer) issue(userID, role string, kind Kind, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Role: role,
		Kind: kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, returning its claims. It fails with
// ErrExpiredToken for structurally valid tokens past expiry and
// ErrInvalidToken for everything else.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims, err := i.verifyWith(tokenString, i.secret)
	if err != nil && len(i.previous) > 0 && errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		claims, err = i.verifyWith(tokenString, i.previous)
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) verifyWith(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(i.leeway),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
