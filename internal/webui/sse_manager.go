package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// SSEConfig tunes the SSE fan-out behavior.
type SSEConfig struct {
	HeartbeatInterval time.Duration
	BufferSize        int
	MaxClients        int
}

// SSEClient is one connected console tab.
type SSEClient struct {
	ID      string
	Events  chan []byte
	Filters []string // event types to receive; empty means all
	Done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// shutdown closes the client's channels exactly once.
func (c *SSEClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Done)
	close(c.Events)
}

// SSEManager fans events out to every open console tab. It implements
// session.Notifier, so search lifecycle events from the session store
// reach the tabs without an adapter.
type SSEManager struct {
	mu      sync.RWMutex
	clients map[string]*SSEClient

	config  *SSEConfig
	logger  *log.Logger
	pending chan *SSEEvent

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSSEManager builds a manager; nil config gets defaults, nil logger
// falls back to log.Default.
func NewSSEManager(config *SSEConfig, logger *log.Logger) *SSEManager {
	if config == nil {
		config = &SSEConfig{
			HeartbeatInterval: 30 * time.Second,
			BufferSize:        100,
			MaxClients:        100,
		}
	}
	if logger == nil {
		logger = log.Default()
	}

	return &SSEManager{
		clients: make(map[string]*SSEClient),
		config:  config,
		logger:  logger,
		pending: make(chan *SSEEvent, config.BufferSize),
	}
}

// Start launches the broadcast loop. The loop drains queued events and
// emits heartbeats until ctx or Stop cancels it.
func (m *SSEManager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	go m.run()
}

// Stop cancels the broadcast loop and disconnects every client.
func (m *SSEManager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, client := range m.clients {
		client.shutdown()
	}
	m.clients = make(map[string]*SSEClient)
}

// Notify implements session.Notifier by queueing the event for broadcast.
func (m *SSEManager) Notify(event string, data interface{}) {
	m.SendEvent(&SSEEvent{Event: event, Data: data})
}

// RegisterClient adds a tab to the fan-out set.
func (m *SSEManager) RegisterClient(id string, filters []string) (*SSEClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.clients) >= m.config.MaxClients {
		return nil, fmt.Errorf("maximum number of SSE clients reached")
	}

	client := &SSEClient{
		ID:      id,
		Events:  make(chan []byte, m.config.BufferSize),
		Filters: filters,
		Done:    make(chan struct{}),
	}
	m.clients[id] = client
	m.logger.Printf("SSE client registered: %s (total: %d)", id, len(m.clients))
	return client, nil
}

// UnregisterClient disconnects and drops a tab.
func (m *SSEManager) UnregisterClient(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[id]
	if !ok {
		return
	}
	client.shutdown()
	delete(m.clients, id)
	m.logger.Printf("SSE client unregistered: %s (remaining: %d)", id, len(m.clients))
}

// SendEvent queues an event without blocking. When the queue is full
// the event is dropped; tabs recover state on their next full render.
func (m *SSEManager) SendEvent(event *SSEEvent) {
	select {
	case m.pending <- event:
	default:
		m.logger.Printf("SSE event queue full, dropping event: %s", event.Event)
	}
}

// run is the single broadcast goroutine.
func (m *SSEManager) run() {
	heartbeat := time.NewTicker(m.config.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event := <-m.pending:
			m.broadcast(event)
		case <-heartbeat.C:
			m.broadcast(&SSEEvent{
				Event: EventTypeHeartbeat,
				Data:  map[string]interface{}{"timestamp": time.Now().Format(time.RFC3339)},
			})
		}
	}
}

// broadcast delivers one event to every client whose filters match.
// Slow clients with full buffers miss the event rather than stall the
// loop.
func (m *SSEManager) broadcast(event *SSEEvent) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		m.logger.Printf("failed to marshal SSE event data: %v", err)
		return
	}
	message := formatSSEMessage(event.Event, data)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, client := range m.clients {
		if !m.shouldSendToClient(client, event.Event) {
			continue
		}
		select {
		case client.Events <- message:
		default:
			m.logger.Printf("SSE client %s buffer full, dropping event", client.ID)
		}
	}
}

func (m *SSEManager) shouldSendToClient(client *SSEClient, eventType string) bool {
	if len(client.Filters) == 0 {
		return true
	}
	for _, filter := range client.Filters {
		if filter == eventType {
			return true
		}
	}
	return false
}

// formatSSEMessage renders one event in text/event-stream framing.
func formatSSEMessage(event string, data []byte) []byte {
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, string(data)))
}

// GetClientCount reports the number of connected tabs.
func (m *SSEManager) GetClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
