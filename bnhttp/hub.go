package bnhttp

import (
	"log/slog"
	"sync"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// subscriberBuffer is the per-subscriber channel depth.
// A subscriber that falls this far behind starts losing events.
const subscriberBuffer = 64

// EventHub fans governance events out to websocket subscribers.
//
// It satisfies [bngov.EventSink]; give it to the engine and gate
// as their sink and to [ServerConfig.Hub] for serving.
// Publish never blocks: slow subscribers drop events rather than
// stalling a governance operation.
type EventHub struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[chan bngov.Event]struct{}
}

func NewEventHub(log *slog.Logger) *EventHub {
	return &EventHub{
		log:  log,
		subs: make(map[chan bngov.Event]struct{}),
	}
}

func (h *EventHub) Publish(e bngov.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.log.Warn("Dropping event for slow subscriber", "kind", e.Kind())
		}
	}
}

// Subscribe registers a new subscriber.
// The returned cancel func must be called exactly once;
// after cancel the channel is closed.
func (h *EventHub) Subscribe() (<-chan bngov.Event, func()) {
	ch := make(chan bngov.Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}
