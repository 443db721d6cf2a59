// Package queue pushes scan jobs onto the Redis list consumed by the
// external scan worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"vulx/internal/config"

	"github.com/redis/go-redis/v9"
)

// JobQueue appends scan jobs for the external worker.
type JobQueue interface {
	Enqueue(ctx context.Context, scanID, specContent string) error
}

// Job is the wire envelope. The worker reads exactly these two fields.
type Job struct {
	ScanID      string `json:"scanId"`
	SpecContent string `json:"specContent"`
}

type RedisQueue struct {
	client *redis.Client
	name   string
}

func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

// NewRedisClient builds the client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Enqueue RPUSHes the job to the tail of the list. A nil return means the
// job was appended at least once; nothing is retried here.
func (q *RedisQueue) Enqueue(ctx context.Context, scanID, specContent string) error {
	payload, err := json.Marshal(Job{ScanID: scanID, SpecContent: specContent})
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("failed to push job onto %s: %w", q.name, err)
	}
	return nil
}

// Ping checks connectivity at startup.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Len reports the number of jobs waiting for the worker.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
