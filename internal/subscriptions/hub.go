package subscriptions

import (
	"context"
	"sync"

	"github.com/challengehub/challengehub/pkg/logger"
)

// Topics name the regions of data a live query depends on. A write notifies
// every topic it touches; the hub re-runs the queries subscribed to them.
const (
	TopicVideos    = "videos"
	TopicUsers     = "users"
	TopicChallenge = "challenges/daily"
)

func TopicUser(userID string) string {
	return "users/" + userID
}

func TopicComments(videoID string) string {
	return "videos/" + videoID + "/comments"
}

func TopicFollowing(followerID string) string {
	return "users/" + followerID + "/following"
}

// Notifier is the write-side view of the hub. Services depend on this
// interface so they can be tested without a running hub.
type Notifier interface {
	Notify(ctx context.Context, topics ...string)
}

// Query produces the complete current result set for one live query.
type Query func(ctx context.Context) (interface{}, error)

// Subscription is a scoped live query. Every delivery on Snapshots carries
// the full result set, never a diff; the consumer must replace its rendered
// state wholesale. Close is safe to call more than once and must be called
// on every exit path.
type Subscription struct {
	id     uint64
	topics map[string]struct{}
	query  Query
	ch     chan interface{}
	hub    *Hub
	once   sync.Once
}

// Snapshots delivers full result-set snapshots. The channel is closed by
// Close. Delivery coalesces to the latest snapshot when the consumer lags.
func (s *Subscription) Snapshots() <-chan interface{} {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Hub owns the set of live queries. It re-executes a query on every
// notification of a topic it depends on and pushes the resulting snapshot
// to the subscriber.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	logger *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a live query and delivers its initial snapshot before
// returning. If the initial execution fails nothing is registered.
func (h *Hub) Subscribe(ctx context.Context, query Query, topics ...string) (*Subscription, error) {
	snapshot, err := query(ctx)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		topics: make(map[string]struct{}, len(topics)),
		query:  query,
		ch:     make(chan interface{}, 1),
		hub:    h,
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	// Seed the initial snapshot before registering so a concurrent Notify
	// can only replace it with something newer.
	sub.ch <- snapshot

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.mu.Unlock()

	return sub, nil
}

// Notify re-runs every subscription that depends on one of the given topics
// and delivers the fresh snapshot. A failing query keeps its previous
// snapshot; the subscriber's state is never changed on an unconfirmed read.
func (h *Hub) Notify(ctx context.Context, topics ...string) {
	h.mu.Lock()
	matched := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		for _, t := range topics {
			if _, ok := sub.topics[t]; ok {
				matched = append(matched, sub)
				break
			}
		}
	}
	h.mu.Unlock()

	for _, sub := range matched {
		snapshot, err := sub.query(ctx)
		if err != nil {
			h.logger.WithError(err).Warn("Live query failed, keeping previous snapshot")
			continue
		}
		h.deliver(sub, snapshot)
	}
}

// deliver replaces any undrained snapshot with the new one. The channel has
// capacity one, so after draining the send cannot block.
func (h *Hub) deliver(sub *Subscription, snapshot interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- snapshot
}

// Close tears down every remaining subscription, for session end.
func (h *Hub) Close() {
	h.mu.Lock()
	remaining := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		remaining = append(remaining, sub)
	}
	h.mu.Unlock()

	for _, sub := range remaining {
		sub.Close()
	}
}
