package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bitcoinworld/arcade-server/internal/id"
)

// Options tunes a Manager.
type Options struct {
	HeartbeatInterval time.Duration
	ClientBuffer      int
	QueueSize         int
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.ClientBuffer <= 0 {
		o.ClientBuffer = 100
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1000
	}
	return o
}

// Client is one live connection. Events is never closed by the Manager;
// Done is closed when the client is disconnected.
type Client struct {
	ID          string
	Identity    Identity
	Events      chan Event
	Done        chan struct{}
	ConnectedAt time.Time

	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Done) })
}

// Manager is the connection registry. It maps channels to subscribed
// clients and delivers queued batches from a single loop.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[Channel]map[string]*Client

	queue chan []Delivery
	wg    sync.WaitGroup

	shutdownMu sync.RWMutex
	shutdown   bool
}

var _ Publisher = (*Manager)(nil)

// NewManager creates a Manager. Call Start to begin delivery.
func NewManager(logger *slog.Logger, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts:     opts,
		logger:   logger,
		clients:  make(map[string]*Client),
		channels: make(map[Channel]map[string]*Client),
		queue:    make(chan []Delivery, opts.QueueSize),
	}
}

// Start runs the delivery loop until ctx is done or Shutdown drains the queue.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("realtime manager starting")

	heartbeat := time.NewTicker(m.opts.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case batch, ok := <-m.queue:
			if !ok {
				m.closeAllClients()
				return
			}
			m.deliver(batch)

		case <-heartbeat.C:
			m.deliver([]Delivery{{Channel: Broadcast, Event: NewHeartbeatEvent()}})

		case <-ctx.Done():
			m.logger.Info("realtime manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting batches and waits for queued ones to be delivered.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.queue)
	m.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("realtime manager shutdown complete")
	case <-ctx.Done():
		m.logger.Warn("realtime drain timeout, some events may be lost")
	}
	// Covers a manager that was never started.
	m.closeAllClients()
	return nil
}

// Publish queues deliveries as one batch. A full queue drops the batch.
func (m *Manager) Publish(deliveries ...Delivery) {
	if len(deliveries) == 0 {
		return
	}
	batch := make([]Delivery, len(deliveries))
	copy(batch, deliveries)

	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()
	if m.shutdown {
		return
	}

	select {
	case m.queue <- batch:
	default:
		m.logger.Error("realtime queue full, dropping batch", "events", len(batch))
	}
}

// Connect registers a client and subscribes it to the broadcast channel
// and, when identified, to its user and wallet channels.
func (m *Manager) Connect(identity Identity) (*Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		Identity:    identity,
		Events:      make(chan Event, m.opts.ClientBuffer),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	m.subscribeLocked(client, Broadcast)
	if identity.UserID != "" {
		m.subscribeLocked(client, UserChannel(identity.UserID))
	}
	if identity.WalletAddress != "" {
		m.subscribeLocked(client, WalletChannel(identity.WalletAddress))
	}
	total := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("realtime client connected",
		"client_id", clientID,
		"user_id", identity.UserID,
		"total_clients", total)
	return client, nil
}

// Subscribe adds a connected client to channel. Unknown clients are ignored.
func (m *Manager) Subscribe(clientID string, channel Channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[clientID]
	if !ok {
		return false
	}
	m.subscribeLocked(client, channel)
	return true
}

func (m *Manager) subscribeLocked(client *Client, channel Channel) {
	subs, ok := m.channels[channel]
	if !ok {
		subs = make(map[string]*Client)
		m.channels[channel] = subs
	}
	subs[client.ID] = client
}

// Disconnect removes a client from every channel and closes its Done.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	for channel, subs := range m.channels {
		delete(subs, clientID)
		if len(subs) == 0 {
			delete(m.channels, channel)
		}
	}
	total := len(m.clients)
	m.mu.Unlock()

	client.close()

	m.logger.Info("realtime client disconnected",
		"client_id", clientID,
		"duration", time.Since(client.ConnectedAt),
		"total_clients", total)
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// SubscriberCount returns the number of clients on channel.
func (m *Manager) SubscriberCount(channel Channel) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels[channel])
}

// deliver sends each event to a snapshot of its channel's subscribers.
// Sends never block: a full client buffer drops the event for that client.
func (m *Manager) deliver(batch []Delivery) {
	for _, d := range batch {
		subs := m.subscribers(d)

		var delivered, dropped int
		for _, c := range subs {
			select {
			case c.Events <- d.Event:
				delivered++
			default:
				dropped++
				m.logger.Warn("dropped event for slow client",
					"client_id", c.ID,
					"event_type", string(d.Event.Type))
			}
		}

		if d.Event.Type != EventHeartbeat {
			m.logger.Debug("event delivered",
				"event_type", string(d.Event.Type),
				"channel", string(d.Channel),
				slog.Group("stats", "delivered", delivered, "dropped", dropped))
		}
	}
}

// subscribers snapshots the distinct clients of d's channel and aliases.
func (m *Manager) subscribers(d Delivery) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(d.Aliases) == 0 {
		subs := make([]*Client, 0, len(m.channels[d.Channel]))
		for _, c := range m.channels[d.Channel] {
			subs = append(subs, c)
		}
		return subs
	}

	seen := make(map[string]struct{})
	var subs []*Client
	for _, ch := range append([]Channel{d.Channel}, d.Aliases...) {
		for clientID, c := range m.channels[ch] {
			if _, ok := seen[clientID]; ok {
				continue
			}
			seen[clientID] = struct{}{}
			subs = append(subs, c)
		}
	}
	return subs
}

func (m *Manager) closeAllClients() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.channels = make(map[Channel]map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if len(clients) > 0 {
		m.logger.Info("all realtime clients disconnected", "count", len(clients))
	}
}
