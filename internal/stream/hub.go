// Package stream provides real-time quote distribution to subscribers.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio-tracker/internal/models"
)

// HubConfig holds configuration for the quote hub.
type HubConfig struct {
	// BufferSize is the size of the internal publish channel buffer.
	BufferSize int
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:           100,
		SubscriberBufferSize: 16,
	}
}

// Update is one batch of refreshed quotes pushed to subscribers.
type Update struct {
	Quotes map[string]*models.Quote
}

// Subscriber receives quote updates filtered to its symbol set.
type Subscriber struct {
	ID        string
	Channel   chan Update
	CreatedAt time.Time

	mu      sync.RWMutex
	symbols map[string]bool
	closed  bool
	dropped uint64
}

// Symbols returns the subscriber's current symbol set.
func (s *Subscriber) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

// SetSymbols replaces the subscriber's symbol set.
func (s *Subscriber) SetSymbols(symbols []string) {
	set := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		set[sym] = true
	}
	s.mu.Lock()
	s.symbols = set
	s.mu.Unlock()
}

func (s *Subscriber) wants(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.symbols[symbol]
}

// Dropped returns how many updates were discarded because the
// subscriber's channel was full.
func (s *Subscriber) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// deliver attempts a non-blocking send. A subscriber that has already
// been closed is skipped; sends and close are serialized on s.mu so a
// disconnect during a broadcast can never hit a closed channel.
func (s *Subscriber) deliver(update Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.Channel <- update:
		return true
	default:
		s.dropped++
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.Channel)
}

// Hub fans quote updates out to subscribers. Each subscriber receives
// only the quotes matching its registered symbol set; sends are
// non-blocking so one slow consumer never delays the rest.
type Hub struct {
	config      HubConfig
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	updateChan  chan Update
	done        chan struct{}
	started     bool

	metricsMu        sync.RWMutex
	updatesReceived  uint64
	updatesBroadcast uint64
	updatesDropped   uint64
}

// NewHub creates a hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	return &Hub{
		config:      config,
		subscribers: make(map[string]*Subscriber),
		updateChan:  make(chan Update, config.BufferSize),
		done:        make(chan struct{}),
	}
}

// Start begins the hub's distribution loop.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go h.broadcastLoop(ctx)
}

func (h *Hub) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case update := <-h.updateChan:
			h.metricsMu.Lock()
			h.updatesReceived++
			h.metricsMu.Unlock()

			h.broadcast(update)
		}
	}
}

// Stop stops the hub and closes all subscriber channels.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return
	}

	close(h.done)
	h.started = false

	for id, sub := range h.subscribers {
		sub.close()
		delete(h.subscribers, id)
	}
}

// Subscribe registers a subscriber for the given symbols and returns it.
func (h *Hub) Subscribe(symbols []string) *Subscriber {
	sub := &Subscriber{
		ID:        uuid.NewString(),
		Channel:   make(chan Update, h.config.SubscriberBufferSize),
		CreatedAt: time.Now(),
	}
	sub.SetSymbols(symbols)

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.ID]; !ok {
		return
	}
	sub.close()
	delete(h.subscribers, sub.ID)
}

// Publish sends a quote batch to the hub for distribution. This is
// non-blocking; if the internal buffer is full the update is dropped.
func (h *Hub) Publish(quotes map[string]*models.Quote) {
	select {
	case h.updateChan <- Update{Quotes: quotes}:
	default:
		h.metricsMu.Lock()
		h.updatesDropped++
		h.metricsMu.Unlock()
	}
}

// broadcast delivers an update to every subscriber whose symbol set
// intersects it, filtered down to that subscriber's symbols.
func (h *Hub) broadcast(update Update) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		filtered := make(map[string]*models.Quote)
		for symbol, quote := range update.Quotes {
			if sub.wants(symbol) {
				filtered[symbol] = quote
			}
		}
		if len(filtered) == 0 {
			continue
		}

		// Skip slow or already-closed consumers - non-blocking
		if sub.deliver(Update{Quotes: filtered}) {
			h.metricsMu.Lock()
			h.updatesBroadcast++
			h.metricsMu.Unlock()
		} else {
			h.metricsMu.Lock()
			h.updatesDropped++
			h.metricsMu.Unlock()
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// SubscribedSymbols returns the union of all subscriber symbol sets.
func (h *Hub) SubscribedSymbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := make(map[string]bool)
	for _, sub := range h.subscribers {
		for _, sym := range sub.Symbols() {
			set[sym] = true
		}
	}
	symbols := make([]string, 0, len(set))
	for sym := range set {
		symbols = append(symbols, sym)
	}
	return symbols
}

// HubMetrics contains hub performance counters.
type HubMetrics struct {
	UpdatesReceived  uint64
	UpdatesBroadcast uint64
	UpdatesDropped   uint64
	Subscribers      int
}

// Metrics returns hub metrics.
func (h *Hub) Metrics() HubMetrics {
	h.metricsMu.RLock()
	defer h.metricsMu.RUnlock()

	return HubMetrics{
		UpdatesReceived:  h.updatesReceived,
		UpdatesBroadcast: h.updatesBroadcast,
		UpdatesDropped:   h.updatesDropped,
		Subscribers:      h.SubscriberCount(),
	}
}

// IsStarted returns whether the hub is running.
func (h *Hub) IsStarted() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}
