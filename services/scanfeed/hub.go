package scanfeed

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/zap"
)

const (
	EventNewScan     = "new-scan"
	EventScanUpdated = "scan-updated"
	EventScanDeleted = "scan-deleted"

	subscriberBuffer = 16
)

type Event struct {
	Name string
	Data any
}

// Hub fans events out to every live subscriber. A subscriber that falls
// behind loses events rather than blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64
	closed      bool
	logger      *logging.Service
}

func NewHub(logger *logging.Service) *Hub {
	return &Hub{
		subscribers: make(map[uint64]chan Event),
		logger:      logger,
	}
}

func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// Publish returns how many subscribers received the event.
func (h *Hub) Publish(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, ch := range h.subscribers {
		select {
		case ch <- event:
			delivered++
		default:
			if h.logger != nil {
				h.logger.Warn("scan feed subscriber lagging, event dropped",
					zap.Uint64("subscriber", id),
					zap.String("event", event.Name))
			}
		}
	}
	return delivered
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}

// WriteSSE encodes event as a server-sent event frame.
func WriteSSE(w io.Writer, event Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, payload)
	return err
}
