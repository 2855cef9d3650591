package websocket

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"Carte/internal/utils"
)

// ErrUnknownGame is returned by a Resolver for game types the server does not run.
var ErrUnknownGame = errors.New("unknown game type")

// Resolver makes sure the session behind a websocket path exists, creating
// it on first reference.
type Resolver interface {
	Resolve(ctx context.Context, gameType, gameID string) error
}

// ConnectFunc runs after registration and before the client's first command is read.
type ConnectFunc func(c *Client)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GET /ws/:gameType/:gameID  (identity middleware runs first)
func ServeWS(hub *Hub, resolver Resolver, onConnect ConnectFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameType, gameID := c.Param("gameType"), c.Param("gameID")

		if err := resolver.Resolve(c.Request.Context(), gameType, gameID); err != nil {
			if errors.Is(err, ErrUnknownGame) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, handshakeHeader(c))
		if err != nil {
			utils.Log.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := &Client{
			ID:       uuid.NewString(),
			Identity: c.GetString("identity"),
			GameType: gameType,
			GameID:   gameID,
			Conn:     conn,
			Send:     make(chan OutgoingMessage, sendBuffer),
			Hub:      hub,
		}

		if !hub.registerClient(client) {
			_ = conn.Close()
			return
		}
		if onConnect != nil {
			onConnect(client)
		}

		go client.writePump()
		go client.readPump()
	}
}

// handshakeHeader carries the cookies set by earlier middleware into the 101
// response; Upgrade writes only the header it is given.
func handshakeHeader(c *gin.Context) http.Header {
	cookies := c.Writer.Header().Values("Set-Cookie")
	if len(cookies) == 0 {
		return nil
	}
	return http.Header{"Set-Cookie": cookies}
}
