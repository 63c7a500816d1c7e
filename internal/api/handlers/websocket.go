package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/booking-assistant/backend/internal/api/middleware"
	ws "github.com/booking-assistant/backend/internal/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536

	// commandTimeout bounds one chat command, calendar publication included.
	commandTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The chat client may be served from another origin.
		return true
	},
}

// WebSocketUpgrade returns a handler that attaches a socket to the session
// named by ?session. Chat commands on the socket share the caller's REST
// rate limit.
func WebSocketUpgrade(hub *ws.Hub, chat ws.ChatHandler, limiter *middleware.RateLimiter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" || len(sessionID) > maxSessionIDLen {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "session query parameter is required")
			return
		}

		ip := limiter.ClientIP(r)
		allow := func() bool { return limiter.Allow(ip) }

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := ws.NewClient(hub, sessionID)
		hub.Register(client)

		go writePump(conn, client)
		go readPump(conn, client, hub, chat, allow, logger)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func writePump(conn *websocket.Conn, client *ws.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump runs client commands until the connection drops.
func readPump(conn *websocket.Conn, client *ws.Client, hub *ws.Hub, chat ws.ChatHandler, allow func() bool, logger *zap.Logger) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", zap.String("session", client.SessionID()), zap.Error(err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		reply := ws.Dispatch(ctx, client.SessionID(), message, chat, allow)
		cancel()

		if reply == nil {
			continue
		}
		data, err := reply.JSON()
		if err != nil {
			logger.Error("encode websocket reply", zap.Error(err))
			continue
		}
		if !client.Reply(data) {
			logger.Debug("websocket reply dropped", zap.String("session", client.SessionID()))
		}
	}
}
