package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/omer3kale/SichrSpace-sub002/internal/models"
)

const maxDeviceInfoLen = 256

// RefreshTokenRepository is the persistence contract of the store.
//
// revokeByHash is a compare-and-swap: it sets revokedAt only on a record that
// still has revokedAt unset, and reports whether this caller won. That single
// atomic step decides the winner between concurrent rotations of the same
// token, so no multi-document transaction is needed.
type RefreshTokenRepository interface {
	Insert(ctx context.Context, record *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	RevokeByHash(ctx context.Context, hash string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// RefreshTokenStore issues, rotates and revokes opaque refresh tokens.
// Raw token values are high-entropy random strings handed to the client once;
// only their SHA-256 hash is ever persisted.
type RefreshTokenStore struct {
	repo RefreshTokenRepository
	ttl  time.Duration
	now  func() time.Time
}

type StoreOption func(*RefreshTokenStore)

// WithStoreClock overrides the time source, for tests.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *RefreshTokenStore) { s.now = now }
}

func NewRefreshTokenStore(repo RefreshTokenRepository, ttl time.Duration, opts ...StoreOption) *RefreshTokenStore {
	store := &RefreshTokenStore{repo: repo, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Issue creates a new refresh token for the user and returns the raw value
// together with the persisted record.
func (s *RefreshTokenStore) Issue(ctx context.Context, userID primitive.ObjectID, deviceInfo string) (string, *models.RefreshToken, error) {
	raw, err := generateOpaqueToken()
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	record := &models.RefreshToken{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		TokenHash:  HashToken(raw),
		ExpiresAt:  now.Add(s.ttl),
		DeviceInfo: truncate(deviceInfo, maxDeviceInfoLen),
		CreatedAt:  now,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return "", nil, fmt.Errorf("storing refresh token: %w", err)
	}
	return raw, record, nil
}

// Rotate exchanges a raw refresh token for a fresh one, revoking the old
// record. Exactly one of any number of concurrent callers presenting the same
// token succeeds; the rest observe ErrTokenRevoked.
//
// On ErrTokenRevoked the matched record is returned alongside the error so
// callers can treat the replay as a compromise signal and revoke the whole
// user session set.
func (s *RefreshTokenStore) Rotate(ctx context.Context, rawToken string) (string, *models.RefreshToken, error) {
	hash := HashToken(rawToken)

	record, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		return "", nil, err
	}
	if record == nil {
		return "", nil, ErrTokenNotFound
	}

	now := s.now()
	if record.RevokedAt != nil {
		return "", record, ErrTokenRevoked
	}
	if !now.Before(record.ExpiresAt) {
		return "", record, ErrExpiredToken
	}

	won, err := s.repo.RevokeByHash(ctx, hash, now)
	if err != nil {
		return "", nil, fmt.Errorf("revoking refresh token: %w", err)
	}
	if !won {
		// Lost the race against a concurrent rotation of the same token.
		return "", record, ErrTokenRevoked
	}

	raw, fresh, err := s.Issue(ctx, record.UserID, record.DeviceInfo)
	if err != nil {
		return "", nil, err
	}
	return raw, fresh, nil
}

// RevokeAll revokes every active refresh token of the user. Used on logout
// and as the compromise response to a replayed token.
func (s *RefreshTokenStore) RevokeAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.RevokeAllForUser(ctx, userID, s.now())
}

// IsUsable reports whether the raw token would currently be accepted by
// Rotate. Read-only, for diagnostics.
func (s *RefreshTokenStore) IsUsable(ctx context.Context, rawToken string) (bool, error) {
	record, err := s.repo.FindByHash(ctx, HashToken(rawToken))
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	return record.Usable(s.now()), nil
}

// PurgeExpired deletes records that have been expired or revoked for longer
// than the retention window. Active records are never touched.
func (s *RefreshTokenStore) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteStale(ctx, s.now().Add(-retention))
}

// HashToken returns the hex SHA-256 digest under which a raw token is stored.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
