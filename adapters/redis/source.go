package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"go-priority-pool/core"
)

// Source keeps queued jobs in a sorted set keyed by the dispatch score,
// so ZPOPMIN returns the best-priority, oldest job. Jobs handed to a
// worker move to a per-pool hash until they are finished or re-queued.
type Source struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisSource(addr string, password string, db int) (*Source, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &Source{
		client: client,
		ctx:    ctx,
	}, nil
}

func queuedKey(pool string) string  { return fmt.Sprintf("pool:%s", pool) }
func runningKey(pool string) string { return fmt.Sprintf("pool:%s:running", pool) }
func jobKey(jobID string) string    { return fmt.Sprintf("job:%s", jobID) }

func (s *Source) addQueued(job core.Model) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return s.client.ZAdd(s.ctx, queuedKey(job.Pool), &redis.Z{
		Score:  float64(job.Score),
		Member: data,
	}).Err()
}

func (s *Source) Enqueue(job core.Model) error {
	return s.addQueued(job)
}

func (s *Source) Dequeue(pool string, limit int) ([]core.Model, error) {
	var jobs []core.Model
	var delayed []core.Model

	for i := 0; i < limit; i++ {
		results, err := s.client.ZPopMin(s.ctx, queuedKey(pool), 1).Result()
		if errors.Is(err, redis.Nil) || len(results) == 0 {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to dequeue job: %v", err)
		}

		data := results[0].Member.(string)

		var job core.Model
		err = json.Unmarshal([]byte(data), &job)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal job: %v", err)
		}

		if job.AvailableAt.After(time.Now().UTC()) {
			delayed = append(delayed, job)
			continue
		}

		job.Status = core.JobRunning
		if err = s.markRunning(job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	for _, job := range delayed {
		s.addQueued(job)
	}

	if len(jobs) == 0 {
		return nil, core.ErrNoJobsFound
	}

	return jobs, nil
}

func (s *Source) markRunning(job core.Model) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.HSet(s.ctx, runningKey(job.Pool), job.ID, data).Err()
}

func (s *Source) UpdateJob(job core.Model) error {
	if err := s.client.HDel(s.ctx, runningKey(job.Pool), job.ID).Err(); err != nil {
		return err
	}

	// a job put back to queued becomes visible to the dispatcher again
	if job.Status == core.JobQueued {
		return s.addQueued(job)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, jobKey(job.ID), data, 0).Err()
}

func (s *Source) DeleteJob(pool, jobID string) error {
	if err := s.client.HDel(s.ctx, runningKey(pool), jobID).Err(); err != nil {
		return err
	}
	return s.client.Del(s.ctx, jobKey(jobID)).Err()
}

func (s *Source) Length(pool string) (int, error) {
	ln, err := s.client.ZCard(s.ctx, queuedKey(pool)).Result()
	if err != nil {
		return 0, err
	}

	return int(ln), nil
}

func (s *Source) Count(pool string, status core.Status) (int, error) {
	switch status {
	case core.JobQueued:
		return s.Length(pool)
	case core.JobRunning:
		ln, err := s.client.HLen(s.ctx, runningKey(pool)).Result()
		if err != nil {
			return 0, err
		}
		return int(ln), nil
	default:
		return 0, nil
	}
}

func (s *Source) Clear(pool string) error {
	return s.client.Del(s.ctx, queuedKey(pool), runningKey(pool)).Err()
}

// ResetRunning re-queues jobs a crashed process left in the running hash.
func (s *Source) ResetRunning(pool string) error {
	entries, err := s.client.HGetAll(s.ctx, runningKey(pool)).Result()
	if err != nil {
		return fmt.Errorf("failed to get running jobs: %v", err)
	}

	for _, data := range entries {
		var job core.Model
		err := json.Unmarshal([]byte(data), &job)
		if err != nil {
			return fmt.Errorf("failed to unmarshal job: %v", err)
		}

		job.Status = core.JobQueued
		if err = s.addQueued(job); err != nil {
			return fmt.Errorf("failed to re-queue job: %v", err)
		}
	}

	return s.client.Del(s.ctx, runningKey(pool)).Err()
}

func (s *Source) Close() error {
	return s.client.Close()
}
