package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"Carte/internal/utils"
)

// Client is one websocket connection viewing one game session.
type Client struct {
	ID       string
	Identity string
	GameType string
	GameID   string
	Conn     *websocket.Conn
	Send     chan OutgoingMessage
	Hub      *Hub
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 4
	sendBuffer     = 256
)

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}

			if err := c.Conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump runs the client's commands one at a time, in arrival order.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregisterClient(c)
		_ = c.Conn.Close()
		if c.Hub.OnDisconnect != nil {
			c.Hub.OnDisconnect(c)
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Log.Warn("websocket read failed", "client", c.ID, "err", err)
			}
			return
		}

		var msg IncomingMessage
		if kind != websocket.TextMessage || json.Unmarshal(data, &msg) != nil || msg.Event == "" {
			c.Hub.SendToClient(c.ID, NewMessage("error", "Invalid message"))
			continue
		}
		msg.From = c.ID

		if c.Hub.OnIncoming != nil {
			c.Hub.OnIncoming(c, msg)
		}
	}
}
