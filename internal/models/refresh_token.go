package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken is the persisted record of an issued refresh token. Only the
// SHA-256 hash of the opaque value is stored; the raw value leaves the server
// exactly once, in the login/refresh response.
//
// A record is usable iff RevokedAt is nil and ExpiresAt is in the future.
// RevokedAt is append-only: once set it is never cleared. Rows are physically
// deleted only by the retention sweeper, after they are expired or revoked
// for longer than the retention window.
type RefreshToken struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	TokenHash  string             `bson:"tokenHash" json:"-"`
	ExpiresAt  time.Time          `bson:"expiresAt" json:"expiresAt"`
	RevokedAt  *time.Time         `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
	DeviceInfo string             `bson:"deviceInfo,omitempty" json:"deviceInfo,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// Usable reports whether the record may still be exchanged at the given time.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
