package ws

import (
	"testing"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"github.com/omer3kale/SichrSpace-sub002/internal/auth"
	"github.com/omer3kale/SichrSpace-sub002/internal/auth/mocks"
)

func claimsFor(userID primitive.ObjectID, role string, kind auth.Kind) *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.Hex()},
		Role:             role,
		Kind:             kind,
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockTokenVerifier(ctrl)
	authenticator := NewChannelAuthenticator(verifier)

	_, err := authenticator.Authenticate(frame.New(frame.CONNECT, "accept-version", "1.2"))
	assert.ErrorIs(t, err, auth.ErrMissingCredential)
}

func TestAuthenticateBearerHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockTokenVerifier(ctrl)
	userID := primitive.NewObjectID()
	verifier.EXPECT().Verify("channel-token").Return(claimsFor(userID, "tenant", auth.KindAccess), nil)

	authenticator := NewChannelAuthenticator(verifier)
	principal, err := authenticator.Authenticate(
		frame.New(frame.CONNECT, "Authorization", "Bearer channel-token"))

	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, "tenant", principal.Role)
}

func TestAuthenticateFallbackTokenHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockTokenVerifier(ctrl)
	userID := primitive.NewObjectID()
	verifier.EXPECT().Verify("plain-token").Return(claimsFor(userID, "landlord", auth.KindAccess), nil)

	authenticator := NewChannelAuthenticator(verifier)
	principal, err := authenticator.Authenticate(
		frame.New(frame.CONNECT, "token", "plain-token"))

	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
}

func TestAuthenticateInvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockTokenVerifier(ctrl)
	verifier.EXPECT().Verify("bad").Return(nil, auth.ErrInvalidToken)

	authenticator := NewChannelAuthenticator(verifier)
	_, err := authenticator.Authenticate(frame.New(frame.CONNECT, "Authorization", "Bearer bad"))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockTokenVerifier(ctrl)
	verifier.EXPECT().Verify("stale").Return(nil, auth.ErrExpiredToken)

	authenticator := NewChannelAuthenticator(verifier)
	_, err := authenticator.Authenticate(frame.New(frame.CONNECT, "Authorization", "Bearer stale"))
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestAuthenticateRejectsRefreshKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockTokenVerifier(ctrl)
	verifier.EXPECT().Verify("refresh").Return(claimsFor(primitive.NewObjectID(), "tenant", auth.KindRefresh), nil)

	authenticator := NewChannelAuthenticator(verifier)
	_, err := authenticator.Authenticate(frame.New(frame.CONNECT, "Authorization", "Bearer refresh"))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthenticateMalformedBearerScheme(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockTokenVerifier(ctrl)

	authenticator := NewChannelAuthenticator(verifier)
	_, err := authenticator.Authenticate(
		frame.New(frame.CONNECT, "Authorization", "Basic dXNlcjpwdw=="))
	assert.ErrorIs(t, err, auth.ErrMissingCredential)
}
