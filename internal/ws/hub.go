package ws

import (
	"encoding/json"
	"sync"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/rs/zerolog/log"

	"github.com/omer3kale/SichrSpace-sub002/internal/models"
)

// Hub fans messages published to a destination out to the sessions
// subscribed to it.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Session]string
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Session]string)}
}

func (h *Hub) Subscribe(destination, subscriptionID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.topics[destination]
	if !ok {
		subscribers = make(map[*Session]string)
		h.topics[destination] = subscribers
	}
	subscribers[s] = subscriptionID
}

func (h *Hub) Unsubscribe(destination string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subscribers, ok := h.topics[destination]; ok {
		delete(subscribers, s)
		if len(subscribers) == 0 {
			delete(h.topics, destination)
		}
	}
}

// Drop removes the session from every destination, on disconnect.
func (h *Hub) Drop(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for destination, subscribers := range h.topics {
		delete(subscribers, s)
		if len(subscribers) == 0 {
			delete(h.topics, destination)
		}
	}
}

// Publish delivers the message to every subscriber of the destination as a
// MESSAGE frame carrying the subscriber's subscription id.
func (h *Hub) Publish(destination string, message *models.Message) {
	body, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("marshalling channel message")
		return
	}

	h.mu.RLock()
	recipients := make(map[*Session]string, len(h.topics[destination]))
	for session, subscriptionID := range h.topics[destination] {
		recipients[session] = subscriptionID
	}
	h.mu.RUnlock()

	for session, subscriptionID := range recipients {
		f := frame.New(frame.MESSAGE,
			frame.Destination, destination,
			frame.MessageId, message.MessageID,
			frame.Subscription, subscriptionID,
			frame.ContentType, "application/json",
		)
		f.Body = body
		if err := session.send(f); err != nil {
			log.Debug().Err(err).Msg("delivering message frame")
		}
	}
}
