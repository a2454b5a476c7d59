package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/metrics"
)

const (
	queueSize         = 1024
	clientBufferSize  = 64
	heartbeatInterval = 30 * time.Second
)

// Client is one open event stream for a space.
type Client struct {
	ID          string
	SpaceID     string
	UserID      string
	ConnectedAt time.Time

	// Events delivers the space's events. It is closed when the client is
	// unsubscribed or the manager shuts down.
	Events chan Event
	// Done is closed together with Events.
	Done chan struct{}
}

// Manager fans events out to the clients of each space.
type Manager struct {
	queue  chan Event
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	spaces map[string]map[string]*Client // spaceID -> clientID -> client
	total  int

	// closing guards queue: Emit holds it shared while sending, Shutdown
	// exclusively while closing.
	closing sync.RWMutex
	closed  bool
}

// NewManager creates a Manager. Call Start to begin delivering events.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		queue:  make(chan Event, queueSize),
		logger: logger,
		spaces: make(map[string]map[string]*Client),
	}
}

// Start delivers queued events and heartbeats until ctx is done or the
// queue is closed by Shutdown.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-m.queue:
			if !ok {
				return
			}
			m.broadcast(event)
		case <-ticker.C:
			m.broadcast(NewHeartbeatEvent())
		case <-ctx.Done():
			m.unsubscribeAll()
			return
		}
	}
}

// Shutdown stops accepting events, delivers what is already queued and
// closes every client.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closing.Lock()
	if m.closed {
		m.closing.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.closing.Unlock()

	drained := make(chan struct{})
	go func() {
		for event := range m.queue {
			m.broadcast(event)
		}
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("event queue not drained before shutdown deadline")
	}

	m.wg.Wait()
	m.unsubscribeAll()
	m.logger.Info("event manager stopped")
	return nil
}

// Emit queues event for the clients of its space. Events without a space
// are dropped, as is everything emitted after Shutdown or while the queue is
// full.
func (m *Manager) Emit(event Event) {
	if event.SpaceID == "" && event.Type != EventHeartbeat {
		m.logger.Error("event without space dropped", "event_type", event.Type)
		return
	}

	m.closing.RLock()
	defer m.closing.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- event:
	default:
		m.logger.Error("event queue full, dropping event", "event_type", event.Type, "space_id", event.SpaceID)
	}
}

// broadcast hands event to its space's clients, or to every client for a
// heartbeat. Clients whose buffer is full miss the event.
func (m *Manager) broadcast(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if event.Type == EventHeartbeat {
		for _, clients := range m.spaces {
			for _, c := range clients {
				m.deliver(c, event)
			}
		}
		return
	}

	clients := m.spaces[event.SpaceID]
	for _, c := range clients {
		m.deliver(c, event)
	}
	m.logger.Debug("event broadcast",
		"event_type", event.Type,
		"space_id", event.SpaceID,
		"clients", len(clients),
	)
}

func (m *Manager) deliver(c *Client, event Event) {
	select {
	case c.Events <- event:
	default:
		m.logger.Warn("dropped event for slow client", "client_id", c.ID, "event_type", event.Type)
	}
}

// Subscribe opens a stream of spaceID's events for userID. Membership is
// checked by the caller.
func (m *Manager) Subscribe(spaceID, userID string) (*Client, error) {
	clientID, err := id.Generate(id.PrefixSSEClient)
	if err != nil {
		return nil, err
	}
	c := &Client{
		ID:          clientID,
		SpaceID:     spaceID,
		UserID:      userID,
		ConnectedAt: time.Now(),
		Events:      make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
	}

	m.mu.Lock()
	clients, ok := m.spaces[spaceID]
	if !ok {
		clients = make(map[string]*Client)
		m.spaces[spaceID] = clients
	}
	clients[clientID] = c
	m.total++
	total := m.total
	m.mu.Unlock()

	metrics.SSEClients.Set(float64(total))
	m.logger.Info("event stream opened",
		"client_id", clientID,
		"space_id", spaceID,
		"user_id", userID,
		"total_clients", total,
	)
	return c, nil
}

// Unsubscribe closes c. Unsubscribing twice is a no-op.
func (m *Manager) Unsubscribe(c *Client) {
	m.mu.Lock()
	clients := m.spaces[c.SpaceID]
	if _, ok := clients[c.ID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(clients, c.ID)
	if len(clients) == 0 {
		delete(m.spaces, c.SpaceID)
	}
	m.total--
	total := m.total
	close(c.Done)
	close(c.Events)
	m.mu.Unlock()

	metrics.SSEClients.Set(float64(total))
	m.logger.Info("event stream closed",
		"client_id", c.ID,
		"duration", time.Since(c.ConnectedAt),
		"total_clients", total,
	)
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// SpaceClientCount returns the number of open streams for spaceID.
func (m *Manager) SpaceClientCount(spaceID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.spaces[spaceID])
}

func (m *Manager) unsubscribeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, clients := range m.spaces {
		for _, c := range clients {
			close(c.Done)
			close(c.Events)
		}
	}
	m.spaces = make(map[string]map[string]*Client)
	m.total = 0
	metrics.SSEClients.Set(0)
}
