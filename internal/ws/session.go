package ws

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/omer3kale/SichrSpace-sub002/internal/auth"
	"github.com/omer3kale/SichrSpace-sub002/internal/models"
)

const conversationTopicPrefix = "/topic/conversations."

// MessageStore persists chat messages flowing through the hub.
type MessageStore interface {
	Save(ctx context.Context, message *models.Message) error
}

// MongoMessageStore writes messages to the messages collection.
type MongoMessageStore struct {
	collection *mongo.Collection
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	return &MongoMessageStore{collection: db.Collection("messages")}
}

func (s *MongoMessageStore) Save(ctx context.Context, message *models.Message) error {
	_, err := s.collection.InsertOne(ctx, message)
	return err
}

// Session is one WebSocket connection speaking STOMP. Its handshake state
// machine has two terminal outcomes: the CONNECT frame either authenticates
// the session for its whole lifetime or the connection is closed. No later
// frame is ever re-verified.
type Session struct {
	conn          *websocket.Conn
	authenticator *ChannelAuthenticator
	hub           *Hub
	messages      MessageStore

	principal     auth.Principal
	authenticated bool

	writeMu sync.Mutex
	subs    map[string]string // subscription id -> destination
}

func NewSession(conn *websocket.Conn, authenticator *ChannelAuthenticator, hub *Hub, messages MessageStore) *Session {
	return &Session{
		conn:          conn,
		authenticator: authenticator,
		hub:           hub,
		messages:      messages,
		subs:          make(map[string]string),
	}
}

// Principal returns the identity bound to the session after a successful
// handshake.
func (s *Session) Principal() (auth.Principal, bool) {
	return s.principal, s.authenticated
}

// Run drives the session until the connection closes. Each WebSocket message
// is expected to carry one STOMP frame.
func (s *Session) Run() {
	defer s.hub.Drop(s)
	defer s.conn.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		f, err := frame.NewReader(bytes.NewReader(data)).Read()
		if err != nil {
			s.sendError("malformed frame")
			return
		}
		if f == nil {
			// Heartbeat.
			continue
		}

		if !s.authenticated {
			if !s.handleConnect(f) {
				return
			}
			continue
		}

		switch f.Command {
		case frame.CONNECT, frame.STOMP:
			s.sendError("already connected")
			return
		case frame.SUBSCRIBE:
			s.handleSubscribe(f)
		case frame.UNSUBSCRIBE:
			s.handleUnsubscribe(f)
		case frame.SEND:
			s.handleSend(f)
		case frame.DISCONNECT:
			if receipt := f.Header.Get(frame.Receipt); receipt != "" {
				_ = s.send(frame.New(frame.RECEIPT, frame.ReceiptId, receipt))
			}
			return
		default:
			// Non-handshake frame types this server has no use for pass
			// through without inspection.
		}
	}
}

// handleConnect resolves the handshake. It reports whether the session may
// continue; false always means the connection is being torn down.
func (s *Session) handleConnect(f *frame.Frame) bool {
	if f.Command != frame.CONNECT && f.Command != frame.STOMP {
		s.sendError("expected CONNECT frame")
		return false
	}

	principal, err := s.authenticator.Authenticate(f)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredential):
			log.Warn().Msg("channel connect without credential")
		case errors.Is(err, auth.ErrExpiredToken):
			log.Warn().Msg("channel connect with expired token")
		default:
			log.Warn().Msg("channel connect with invalid token")
		}
		s.sendError("authentication failed")
		return false
	}

	s.principal = principal
	s.authenticated = true
	if err := s.send(frame.New(frame.CONNECTED, frame.Version, "1.2")); err != nil {
		return false
	}
	log.Debug().Str("user", principal.UserID.Hex()).Msg("channel authenticated")
	return true
}

func (s *Session) handleSubscribe(f *frame.Frame) {
	destination := f.Header.Get(frame.Destination)
	subscriptionID := f.Header.Get(frame.Id)
	if destination == "" || subscriptionID == "" {
		s.sendError("subscribe requires destination and id")
		return
	}
	s.subs[subscriptionID] = destination
	s.hub.Subscribe(destination, subscriptionID, s)
}

func (s *Session) handleUnsubscribe(f *frame.Frame) {
	subscriptionID := f.Header.Get(frame.Id)
	destination, ok := s.subs[subscriptionID]
	if !ok {
		return
	}
	delete(s.subs, subscriptionID)
	s.hub.Unsubscribe(destination, s)
}

func (s *Session) handleSend(f *frame.Frame) {
	destination := f.Header.Get(frame.Destination)
	if destination == "" {
		s.sendError("send requires destination")
		return
	}

	message := &models.Message{
		MessageID:      uuid.NewString(),
		ConversationID: strings.TrimPrefix(destination, conversationTopicPrefix),
		SenderID:       s.principal.UserID,
		Body:           string(f.Body),
		SentAt:         time.Now().UTC(),
	}

	if s.messages != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.messages.Save(ctx, message); err != nil {
			log.Error().Err(err).Msg("persisting channel message")
		}
		cancel()
	}

	s.hub.Publish(destination, message)
}

func (s *Session) send(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

func (s *Session) sendError(reason string) {
	f := frame.New(frame.ERROR, "message", reason)
	f.Body = []byte(reason)
	_ = s.send(f)
}
