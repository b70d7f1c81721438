package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis шина поверх Redis Pub/Sub, канал на проект. Позволяет нескольким
// процессам видеть события друг друга.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
	subs   map[int]*redisSubscription
	mu     sync.Mutex
	nextID int
	closed bool
}

var _ Bus = (*Redis)(nil)

type redisSubscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

// NewRedis создает шину и клиента Redis. Клиент закрывается в Close.
func NewRedis(opts *redis.Options, logger *slog.Logger) *Redis {
	return &Redis{
		client: redis.NewClient(opts),
		logger: logger,
		subs:   make(map[int]*redisSubscription),
	}
}

// Ping проверяет доступность Redis.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Publish публикует событие в канал проекта.
func (r *Redis) Publish(ctx context.Context, event Event) error {
	if event.ProjectID == "" {
		return errors.New("event project id is required")
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.client.Publish(ctx, ChannelName(event.ProjectID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe подписывается на канал проекта. Возврат происходит после того,
// как Redis подтвердил подписку.
func (r *Redis) Subscribe(ctx context.Context, projectID string, handler Handler) (func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	id := r.nextID
	r.nextID++
	r.mu.Unlock()

	pubsub := r.client.Subscribe(ctx, ChannelName(projectID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to project %s: %w", projectID, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = pubsub.Close()
		return nil, ErrClosed
	}
	r.subs[id] = sub
	r.mu.Unlock()

	go r.receive(sub, projectID, handler)

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
		sub.close()
	}, nil
}

func (r *Redis) receive(sub *redisSubscription, projectID string, handler Handler) {
	defer close(sub.done)

	for msg := range sub.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			r.logger.Warn("Failed to decode project event", "channel", msg.Channel, "error", err)
			continue
		}
		if event.ProjectID != projectID {
			continue
		}
		handler(event)
	}
}

func (s *redisSubscription) close() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
	})
	<-s.done
}

// Close закрывает все подписки и клиента.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := make([]*redisSubscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.subs = make(map[int]*redisSubscription)
	r.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
