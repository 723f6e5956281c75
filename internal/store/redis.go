package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxsplit/api/internal/model"
)

// DefaultRetention is how long job records live before retention-policy
// expiry removes them.
const DefaultRetention = 24 * time.Hour

// RedisStore keeps job records as JSON values with a TTL.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{client: client, retention: retention}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func (s *RedisStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, jobKey(job.ID), data, s.retention).Err()
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, model.ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	return s.client.Del(ctx, jobKey(jobID)).Err()
}
