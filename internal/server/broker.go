package server

import (
	"encoding/json"
	"sync"
)

// VerificationEvent is the payload published to guide subscribers when a
// submission against one of their quests changes state.
type VerificationEvent struct {
	Type         string  `json:"type"`
	SubmissionID string  `json:"submission_id"`
	QuestID      string  `json:"quest_id"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// Broker is an in-process pub/sub for SSE events, keyed by guide ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given guide.
func (b *Broker) Subscribe(guideID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[guideID] == nil {
		b.subs[guideID] = make(map[chan []byte]struct{})
	}
	b.subs[guideID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the guide's subscribers.
func (b *Broker) Unsubscribe(guideID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[guideID], ch)
	if len(b.subs[guideID]) == 0 {
		delete(b.subs, guideID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given guide.
func (b *Broker) Publish(guideID string, event VerificationEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[guideID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
