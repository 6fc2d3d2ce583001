package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/challengehub/challengehub/pkg/queue"
)

// FakePublisher records published events instead of writing to Kafka.
type FakePublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *FakePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event, ok := value.(queue.Event); ok {
		p.events = append(p.events, event)
	}
	return nil
}

func (p *FakePublisher) Close() error {
	return nil
}

func (p *FakePublisher) Events() []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.Event(nil), p.events...)
}

// EventsOfType filters recorded events by type.
func (p *FakePublisher) EventsOfType(eventType queue.EventType) []queue.Event {
	var matched []queue.Event
	for _, event := range p.Events() {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// FakeNotifier records notified topics.
type FakeNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (n *FakeNotifier) Notify(ctx context.Context, topics ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topics...)
}

func (n *FakeNotifier) Topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.topics...)
}

// FakeNameCache is an in-memory stand-in for the Redis preference store.
type FakeNameCache struct {
	mu     sync.Mutex
	values map[string]string
}

func NewFakeNameCache() *FakeNameCache {
	return &FakeNameCache{values: make(map[string]string)}
}

func (c *FakeNameCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *FakeNameCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := value.(string); ok {
		c.values[key] = s
	}
	return nil
}
