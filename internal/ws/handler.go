package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The CONNECT frame authenticates the channel; the upgrade itself is
	// open, matching browsers that cannot set headers on a WebSocket dial.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades the request and runs the STOMP session until the
// connection closes.
func Handler(authenticator *ChannelAuthenticator, hub *Hub, messages MessageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		NewSession(conn, authenticator, hub, messages).Run()
	}
}
