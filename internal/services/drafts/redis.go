package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"loanpredictor/internal/models"
)

const keyPrefix = "loanpredictor:draft:"

// RedisStore keeps drafts as Redis strings that expire after the TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient opens a client for the draft backend
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Ping checks the connection
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Save(ctx context.Context, id string, form models.FormSnapshot) error {
	data, err := encode(form, time.Now())
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+id, data, r.ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, id string) (models.FormSnapshot, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	d, err := decode(data)
	if err != nil {
		return nil, err
	}
	return d.Form, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
