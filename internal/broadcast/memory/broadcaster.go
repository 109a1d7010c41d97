// Package memory contains an in-memory broadcaster for tests.
package memory

import (
	"context"
	"sync"
)

// Broadcaster stores published payloads for inspection and reports a
// settable subscriber count.
type Broadcaster struct {
	mu          sync.RWMutex
	messages    []PublishedMessage
	subscribers map[string]int64
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	Channel string
	Payload []byte
}

// New returns a memory Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]int64)}
}

// Publish records the message.
func (b *Broadcaster) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := make([]byte, len(payload))
	copy(copied, payload)
	b.messages = append(b.messages, PublishedMessage{Channel: channel, Payload: copied})
	return nil
}

// SubscriberCount returns the count set via SetSubscribers.
func (b *Broadcaster) SubscriberCount(_ context.Context, channel string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscribers[channel], nil
}

// SetSubscribers sets the subscriber count reported for a channel.
func (b *Broadcaster) SetSubscribers(channel string, count int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = count
}

// Messages returns the recorded publishes.
func (b *Broadcaster) Messages() []PublishedMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PublishedMessage, len(b.messages))
	copy(out, b.messages)
	return out
}
