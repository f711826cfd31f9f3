package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/blockedby/interview-os/internal/models"
)

// RedisSessionRepository keeps the session as a JSON string under one key.
type RedisSessionRepository struct {
	client *redis.Client
	key    string
}

// NewRedisSessionRepository connects to url (redis://...) and verifies the connection.
func NewRedisSessionRepository(ctx context.Context, url, key string) (*RedisSessionRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if key == "" {
		key = DefaultKey
	}
	return &RedisSessionRepository{client: client, key: "session:" + key}, nil
}

// Load returns the stored session, or nil when nothing was saved yet.
func (r *RedisSessionRepository) Load(ctx context.Context) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeSession(data)
}

// Save overwrites the stored session. The record never expires.
func (r *RedisSessionRepository) Save(ctx context.Context, s models.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *RedisSessionRepository) Close() error {
	return r.client.Close()
}
