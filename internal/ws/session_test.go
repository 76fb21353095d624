package ws

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/omer3kale/SichrSpace-sub002/internal/auth"
	"github.com/omer3kale/SichrSpace-sub002/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer("ws-test-secret", time.Hour, 24*time.Hour)
	require.NoError(t, err)
	return issuer
}

func dialTestServer(t *testing.T, issuer *auth.Issuer) *websocket.Conn {
	t.Helper()

	r := gin.New()
	r.GET("/ws", Handler(NewChannelAuthenticator(issuer), NewHub(), nil))
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeStompFrame(t *testing.T, conn *websocket.Conn, f *frame.Frame) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, frame.NewWriter(&buf).Write(f))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, buf.Bytes()))
}

func readStompFrame(t *testing.T, conn *websocket.Conn) *frame.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	f, err := frame.NewReader(bytes.NewReader(data)).Read()
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}

func TestConnectWithoutTokenIsRejected(t *testing.T) {
	conn := dialTestServer(t, newTestIssuer(t))

	writeStompFrame(t, conn, frame.New(frame.CONNECT, "accept-version", "1.2"))

	f := readStompFrame(t, conn)
	assert.Equal(t, frame.ERROR, f.Command)

	// The connection is torn down before any subscription is possible.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestConnectWithInvalidTokenIsRejected(t *testing.T) {
	conn := dialTestServer(t, newTestIssuer(t))

	writeStompFrame(t, conn, frame.New(frame.CONNECT,
		"accept-version", "1.2",
		"Authorization", "Bearer not-a-jwt",
	))

	f := readStompFrame(t, conn)
	assert.Equal(t, frame.ERROR, f.Command)
}

func TestSubscribeBeforeConnectIsRejected(t *testing.T) {
	conn := dialTestServer(t, newTestIssuer(t))

	writeStompFrame(t, conn, frame.New(frame.SUBSCRIBE,
		frame.Destination, "/topic/conversations.apt42",
		frame.Id, "sub-0",
	))

	f := readStompFrame(t, conn)
	assert.Equal(t, frame.ERROR, f.Command)
}

func TestAuthenticatedSessionCarriesPrincipal(t *testing.T) {
	issuer := newTestIssuer(t)
	userID := primitive.NewObjectID()
	token, _, err := issuer.IssueAccessToken(userID.Hex(), "tenant")
	require.NoError(t, err)

	conn := dialTestServer(t, issuer)

	writeStompFrame(t, conn, frame.New(frame.CONNECT,
		"accept-version", "1.2",
		"Authorization", "Bearer "+token,
	))
	connected := readStompFrame(t, conn)
	require.Equal(t, frame.CONNECTED, connected.Command)

	writeStompFrame(t, conn, frame.New(frame.SUBSCRIBE,
		frame.Destination, "/topic/conversations.apt42",
		frame.Id, "sub-1",
	))

	send := frame.New(frame.SEND, frame.Destination, "/topic/conversations.apt42")
	send.Body = []byte("is the apartment still available?")
	writeStompFrame(t, conn, send)

	message := readStompFrame(t, conn)
	require.Equal(t, frame.MESSAGE, message.Command)
	assert.Equal(t, "/topic/conversations.apt42", message.Header.Get(frame.Destination))
	assert.Equal(t, "sub-1", message.Header.Get(frame.Subscription))
	assert.NotEmpty(t, message.Header.Get(frame.MessageId))

	// Frames after the handshake inherit the session principal: the
	// delivered message is attributed to the token's subject.
	var delivered models.Message
	require.NoError(t, json.Unmarshal(message.Body, &delivered))
	assert.Equal(t, userID, delivered.SenderID)
	assert.Equal(t, "apt42", delivered.ConversationID)
	assert.Equal(t, "is the apartment still available?", delivered.Body)
}

func TestRefreshTokenCannotOpenChannel(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.IssueRefreshToken(primitive.NewObjectID().Hex(), "tenant")
	require.NoError(t, err)

	conn := dialTestServer(t, issuer)
	writeStompFrame(t, conn, frame.New(frame.CONNECT,
		"accept-version", "1.2",
		"Authorization", "Bearer "+token,
	))

	f := readStompFrame(t, conn)
	assert.Equal(t, frame.ERROR, f.Command)
}

func TestFallbackTokenHeaderOpensChannel(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.IssueAccessToken(primitive.NewObjectID().Hex(), "tenant")
	require.NoError(t, err)

	conn := dialTestServer(t, issuer)
	writeStompFrame(t, conn, frame.New(frame.CONNECT,
		"accept-version", "1.2",
		"token", token,
	))

	f := readStompFrame(t, conn)
	assert.Equal(t, frame.CONNECTED, f.Command)
}
