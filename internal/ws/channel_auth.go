// Package ws carries the persistent messaging channel: STOMP frames over a
// WebSocket connection. A connection authenticates exactly once, on its
// CONNECT frame; every later frame inherits the session principal.
package ws

import (
	"strings"

	"github.com/go-stomp/stomp/v3/frame"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/omer3kale/SichrSpace-sub002/internal/auth"
)

// ChannelAuthenticator validates the bearer token carried on a
// connection-establishment frame. Unlike the HTTP middleware it is
// fail-closed: there is no unauthenticated state for a channel, so any
// failure terminates the connection attempt.
type ChannelAuthenticator struct {
	verifier auth.TokenVerifier
}

func NewChannelAuthenticator(verifier auth.TokenVerifier) *ChannelAuthenticator {
	return &ChannelAuthenticator{verifier: verifier}
}

// Authenticate reads the token from the Authorization header of the frame,
// falling back to the plain token header for clients that cannot set
// arbitrary headers on this transport, and verifies it. Only access-kind
// tokens authenticate a channel.
func (a *ChannelAuthenticator) Authenticate(f *frame.Frame) (auth.Principal, error) {
	token := bearerFromFrame(f)
	if token == "" {
		return auth.Principal{}, auth.ErrMissingCredential
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		return auth.Principal{}, err
	}
	if claims.Kind != auth.KindAccess {
		return auth.Principal{}, auth.ErrInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return auth.Principal{}, auth.ErrInvalidToken
	}

	return auth.Principal{UserID: userID, Role: claims.Role}, nil
}

func bearerFromFrame(f *frame.Frame) string {
	if raw := strings.TrimSpace(f.Header.Get("Authorization")); raw != "" {
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(f.Header.Get("token"))
}
