package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

// NewRedisClient connects and pings the Redis server used for fan-out.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	utils.InfoLogger.Printf("Connected to Redis at %s (db=%d)", addr, db)
	return client, nil
}

// RedisFeed publishes committed changes on a pub/sub channel shared by all
// processes.
type RedisFeed struct {
	client  *redis.Client
	channel string
	origin  string

	mu  sync.Mutex
	sub *redis.PubSub
}

func NewRedisFeed(client *redis.Client, channel, origin string) *RedisFeed {
	return &RedisFeed{
		client:  client,
		channel: channel,
		origin:  origin,
	}
}

func (f *RedisFeed) Publish(ctx context.Context, changes []models.DBChange) error {
	for _, change := range changes {
		data, err := json.Marshal(change)
		if err != nil {
			return fmt.Errorf("failed to marshal change: %w", err)
		}
		if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
			return fmt.Errorf("failed to publish change to %s: %w", f.channel, err)
		}
	}
	return nil
}

func (f *RedisFeed) Start(handler func(models.DBChange)) error {
	ctx := context.Background()
	sub := f.client.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	f.mu.Lock()
	f.sub = sub
	f.mu.Unlock()

	go func() {
		for msg := range sub.Channel() {
			change, ok := f.decode(msg.Payload)
			if !ok {
				continue
			}
			handler(change)
		}
	}()

	utils.InfoLogger.Printf("Listening for changes on redis channel %s", f.channel)
	return nil
}

// decode parses a payload and drops changes this process wrote itself.
func (f *RedisFeed) decode(payload string) (models.DBChange, bool) {
	var change models.DBChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		utils.ErrorLogger.Errorf("Failed to parse change: %v", err)
		return change, false
	}
	if change.Origin == f.origin {
		return change, false
	}
	return change, true
}

func (f *RedisFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil {
		f.sub.Close()
		f.sub = nil
	}
}
