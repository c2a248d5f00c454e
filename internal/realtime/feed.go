// Package realtime carries row-change events from the mission write path to
// every subscriber: the in-memory cache and the WebSocket hub both ride the
// same feed, so the originator of a change hears its own echo.
package realtime

import (
	"log"
	"sync"

	"github.com/vduarte/missions-api/internal/models"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one row-level change on the missions table. DELETE events carry
// only the id; the full mission rides on INSERT and UPDATE.
type Event struct {
	Type      EventType       `json:"type"`
	MissionID string          `json:"missionId"`
	Mission   *models.Mission `json:"mission,omitempty"`
}

// Feed is an in-process publish/subscribe channel. Delivery is best-effort:
// a subscriber that falls behind its buffer drops events rather than
// blocking the write path.
type Feed struct {
	mu   sync.RWMutex
	subs map[chan Event]bool
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Event]bool)}
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// function unregisters it and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	f.mu.Lock()
	f.subs[ch] = true
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if f.subs[ch] {
			delete(f.subs, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans the event out to every subscriber without blocking.
func (f *Feed) Publish(e Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs {
		select {
		case ch <- e:
		default:
			log.Printf("realtime: subscriber buffer full, dropping %s for mission %s", e.Type, e.MissionID)
		}
	}
}
