package realtime

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const sseWriteDeadline = 60 * time.Second

// Authenticator resolves the identity of a streaming request. A zero
// Identity with nil error is an anonymous viewer.
type Authenticator func(r *http.Request) (Identity, error)

// SSEHandler serves GET /api/realtime/stream.
type SSEHandler struct {
	manager *Manager
	auth    Authenticator
	logger  *slog.Logger
}

// NewSSEHandler creates an SSE handler. auth may be nil for anonymous-only streams.
func NewSSEHandler(manager *Manager, auth Authenticator, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{manager: manager, auth: auth, logger: logger}
}

// ServeHTTP streams events until the client goes away or the manager closes it.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	identity, ok := resolveIdentity(w, r, h.auth)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", "error", err)
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(identity)
	if err != nil {
		h.logger.Error("failed to register realtime client", "error", err)
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With("client_id", client.ID)

	if err := h.send(w, rc, newEvent(EventConnected, map[string]string{"clientId": client.ID})); err != nil {
		log.Warn("failed to send connected event", "error", err)
		return
	}

	ctx := r.Context()
	for {
		select {
		case event := <-client.Events:
			if err := h.send(w, rc, event); err != nil {
				log.Info("client disconnected during send")
				return
			}
		case <-client.Done:
			log.Info("client closed by manager")
			return
		case <-ctx.Done():
			return
		}
	}
}

// send writes one "event: <type>\ndata: <json>\n\n" frame and flushes it.
func (h *SSEHandler) send(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := rc.SetWriteDeadline(time.Now().Add(sseWriteDeadline)); err != nil {
		h.logger.Debug("failed to set write deadline", "error", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	return rc.Flush()
}

// resolveIdentity runs auth, writing 401 and returning false on failure.
func resolveIdentity(w http.ResponseWriter, r *http.Request, auth Authenticator) (Identity, bool) {
	if auth == nil {
		return Identity{}, true
	}
	identity, err := auth(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return Identity{}, false
	}
	return identity, true
}
