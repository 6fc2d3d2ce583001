package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher is the write side of the engagement event stream. Services
// depend on this interface so they can be constructed with a fake in tests.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

type KafkaProducer struct {
	writer *kafka.Writer
}

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    false,
	}

	return &KafkaProducer{writer: writer}
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 1 * time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaConsumer{reader: reader}
}

func (p *KafkaProducer) Publish(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	return p.writer.WriteMessages(ctx, message)
}

func (c *KafkaConsumer) Subscribe(ctx context.Context, handler func(Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.ReadMessage(ctx)
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}

			var event Event
			if err := json.Unmarshal(message.Value, &event); err != nil {
				fmt.Printf("Failed to unmarshal event: %v\n", err)
				continue
			}

			if err := handler(event); err != nil {
				fmt.Printf("Failed to handle event: %v\n", err)
				continue
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type EventType string

const (
	EventUserCreated      EventType = "user_created"
	EventUserHealed       EventType = "user_healed"
	EventVideoCreated     EventType = "video_created"
	EventVideoDeleted     EventType = "video_deleted"
	EventLikeToggled      EventType = "like_toggled"
	EventFollowToggled    EventType = "follow_toggled"
	EventCommentCreated   EventType = "comment_created"
	EventCommentLiked     EventType = "comment_liked"
	EventBadgePurchased   EventType = "badge_purchased"
	EventChallengeRotated EventType = "challenge_rotated"
)

type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent marshals the payload eagerly so a consumer can decode Data into
// the matching *EventData struct by switching on Type.
func NewEvent(eventType EventType, data interface{}) Event {
	raw, _ := json.Marshal(data)
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      raw,
	}
}

type VideoEventData struct {
	VideoID     string `json:"video_id"`
	OwnerID     string `json:"owner_id"`
	ChallengeID string `json:"challenge_id"`
}

type LikeEventData struct {
	VideoID  string `json:"video_id"`
	OwnerID  string `json:"owner_id"`
	ViewerID string `json:"viewer_id"`
	Liked    bool   `json:"liked"`
}

type FollowEventData struct {
	FollowerID string `json:"follower_id"`
	TargetID   string `json:"target_id"`
	Following  bool   `json:"following"`
}

type CommentEventData struct {
	CommentID string  `json:"comment_id"`
	VideoID   string  `json:"video_id"`
	AuthorID  string  `json:"author_id"`
	ParentID  *string `json:"parent_id,omitempty"`
}

type UserEventData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type BadgeEventData struct {
	UserID string `json:"user_id"`
	Badge  string `json:"badge"`
	Cost   int64  `json:"cost"`
}

type ChallengeEventData struct {
	ChallengeID string `json:"challenge_id"`
	Title       string `json:"title"`
}
