package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 8) / 10

	// Viewers only send control frames.
	maxMessageSize = 512
)

// WSHandler serves GET /api/realtime/ws. Each text frame is one JSON Event.
type WSHandler struct {
	manager  *Manager
	auth     Authenticator
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WebSocket handler. checkOrigin may be nil to accept any origin.
func NewWSHandler(manager *Manager, auth Authenticator, checkOrigin func(r *http.Request) bool, logger *slog.Logger) *WSHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WSHandler{
		manager: manager,
		auth:    auth,
		logger:  logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   maxMessageSize,
			WriteBufferSize:  4096,
			CheckOrigin:      checkOrigin,
		},
	}
}

// ServeHTTP upgrades the connection and pumps events until either side closes.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r, h.auth)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client, err := h.manager.Connect(identity)
	if err != nil {
		h.logger.Error("failed to register realtime client", "error", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registration failed"))
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With("client_id", client.ID)

	readDone := make(chan struct{})
	go h.readPump(conn, readDone, log)

	if err := h.write(conn, newEvent(EventConnected, map[string]string{"clientId": client.ID})); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case event := <-client.Events:
			if err := h.write(conn, event); err != nil {
				log.Info("client disconnected during send")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.Done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-readDone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// readPump consumes control frames so pongs extend the read deadline.
func (h *WSHandler) readPump(conn *websocket.Conn, done chan<- struct{}, log *slog.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, event Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	w, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
