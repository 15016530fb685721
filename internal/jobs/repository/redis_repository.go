package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/jobs"
	"github.com/imageforge/imageforge/internal/models"
	"github.com/imageforge/imageforge/pkg/logger"
)

const (
	queuedMarkerPrefix = "queued:"
	lockPrefix         = "lock:"
	resultPrefix       = "result:"
)

type queueRepo struct {
	redisClient *redis.Client
	cfg         *config.Config
	logger      logger.Logger
}

func NewQueueRepository(redisClient *redis.Client, cfg *config.Config, logger logger.Logger) jobs.QueueRepository {
	return &queueRepo{redisClient: redisClient, cfg: cfg, logger: logger}
}

func (q *queueRepo) Enqueue(ctx context.Context, job *models.QueueJob) (bool, error) {
	marker := queuedMarkerPrefix + job.JobID.String()
	ok, err := q.redisClient.SetNX(ctx, marker, 1, q.failedTTL()).Result()
	if err != nil {
		return false, errors.Wrap(err, "queueRepo.Enqueue.SetNX")
	}
	if !ok {
		return false, nil
	}

	if job.Attempt == 0 {
		job.Attempt = 1
	}
	job.EnqueuedAt = time.Now().UTC()

	payload, err := json.Marshal(job)
	if err != nil {
		q.redisClient.Del(ctx, marker)
		return false, errors.Wrap(err, "queueRepo.Enqueue.Marshal")
	}
	if err := q.redisClient.LPush(ctx, q.cfg.Queue.PendingKey, payload).Err(); err != nil {
		q.redisClient.Del(ctx, marker)
		return false, errors.Wrap(err, "queueRepo.Enqueue.LPush")
	}
	return true, nil
}

// Dequeue atomically moves the oldest pending entry to the processing list
// and takes the per-job lock. A job whose lock is already held was handed out
// twice (recovery race); it is dropped from processing and the call reports
// no work.
func (q *queueRepo) Dequeue(ctx context.Context) (*models.QueueJob, string, error) {
	timeout := time.Duration(q.cfg.Worker.DequeueTimeoutSecs) * time.Second
	raw, err := q.redisClient.BRPopLPush(ctx, q.cfg.Queue.PendingKey, q.cfg.Queue.ProcessingKey, timeout).Result()
	if err == redis.Nil {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "queueRepo.Dequeue.BRPopLPush")
	}

	job := &models.QueueJob{}
	if err := json.Unmarshal([]byte(raw), job); err != nil {
		// Keep the corrupt payload on the failed list so the stuck DB
		// record stays diagnosable.
		q.quarantine(ctx, raw)
		return nil, "", errors.Wrap(err, "queueRepo.Dequeue.Unmarshal")
	}

	lockKey := lockPrefix + job.JobID.String()
	acquired, err := q.redisClient.SetNX(ctx, lockKey, 1, q.lockTTL()).Result()
	if err != nil {
		// Entry stays on the processing list; stale recovery requeues it.
		return nil, "", errors.Wrap(err, "queueRepo.Dequeue.SetNX")
	}
	if !acquired {
		q.logger.Warnf("dropping duplicate delivery of job %s", job.JobID)
		q.redisClient.LRem(ctx, q.cfg.Queue.ProcessingKey, 1, raw)
		return nil, "", nil
	}
	return job, raw, nil
}

func (q *queueRepo) Ack(ctx context.Context, job *models.QueueJob, raw string) error {
	if err := q.redisClient.LRem(ctx, q.cfg.Queue.ProcessingKey, 1, raw).Err(); err != nil {
		return errors.Wrap(err, "queueRepo.Ack.LRem")
	}
	q.releaseLock(ctx, job)
	resultKey := resultPrefix + job.JobID.String()
	if err := q.redisClient.Set(ctx, resultKey, string(models.JobStatusCompleted), q.completedTTL()).Err(); err != nil {
		return errors.Wrap(err, "queueRepo.Ack.Set")
	}
	return nil
}

func (q *queueRepo) Retry(ctx context.Context, job *models.QueueJob, raw string, cause error) (bool, error) {
	if err := q.redisClient.LRem(ctx, q.cfg.Queue.ProcessingKey, 1, raw).Err(); err != nil {
		return false, errors.Wrap(err, "queueRepo.Retry.LRem")
	}
	q.releaseLock(ctx, job)

	if job.Attempt >= q.cfg.Queue.MaxAttempts {
		if err := q.markFailed(ctx, job); err != nil {
			return true, err
		}
		return true, nil
	}

	delay := q.backoff(job.Attempt)
	job.Attempt++
	payload, err := json.Marshal(job)
	if err != nil {
		return false, errors.Wrap(err, "queueRepo.Retry.Marshal")
	}

	// The delayed entry lives in redis, not in a process timer, so a
	// worker restart during the backoff window cannot lose the job.
	q.logger.Infof("requeueing job %s (attempt %d) in %s: %v", job.JobID, job.Attempt, delay, cause)
	due := float64(time.Now().UTC().Add(delay).UnixMilli())
	if err := q.redisClient.ZAdd(ctx, q.cfg.Queue.DelayedKey, &redis.Z{Score: due, Member: payload}).Err(); err != nil {
		return false, errors.Wrap(err, "queueRepo.Retry.ZAdd")
	}
	return false, nil
}

// ReleaseDue moves delayed entries whose backoff has elapsed back to the
// pending list. ZRem claims each entry before the push so concurrent
// drainers never deliver the same payload twice.
func (q *queueRepo) ReleaseDue(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	entries, err := q.redisClient.ZRangeByScore(ctx, q.cfg.Queue.DelayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return 0, errors.Wrap(err, "queueRepo.ReleaseDue.ZRangeByScore")
	}

	released := 0
	for _, raw := range entries {
		claimed, err := q.redisClient.ZRem(ctx, q.cfg.Queue.DelayedKey, raw).Result()
		if err != nil {
			return released, errors.Wrap(err, "queueRepo.ReleaseDue.ZRem")
		}
		if claimed == 0 {
			continue
		}
		if err := q.redisClient.LPush(ctx, q.cfg.Queue.PendingKey, raw).Err(); err != nil {
			return released, errors.Wrap(err, "queueRepo.ReleaseDue.LPush")
		}
		released++
	}
	return released, nil
}

func (q *queueRepo) Fail(ctx context.Context, job *models.QueueJob, raw string) error {
	if err := q.redisClient.LRem(ctx, q.cfg.Queue.ProcessingKey, 1, raw).Err(); err != nil {
		return errors.Wrap(err, "queueRepo.Fail.LRem")
	}
	q.releaseLock(ctx, job)
	return q.markFailed(ctx, job)
}

func (q *queueRepo) RecoverStale(ctx context.Context, olderThan time.Duration) (int, []*models.QueueJob, error) {
	entries, err := q.redisClient.LRange(ctx, q.cfg.Queue.ProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, nil, errors.Wrap(err, "queueRepo.RecoverStale.LRange")
	}

	requeued := 0
	var terminal []*models.QueueJob
	cutoff := time.Now().UTC().Add(-olderThan)

	for _, raw := range entries {
		job := &models.QueueJob{}
		if err := json.Unmarshal([]byte(raw), job); err != nil {
			q.logger.Errorf("quarantining unreadable processing entry: %v", err)
			q.quarantine(ctx, raw)
			continue
		}
		if job.EnqueuedAt.After(cutoff) {
			continue
		}
		// A live lock means a worker is still on it; expired lock means
		// the worker died between pickup and ack.
		held, err := q.redisClient.Exists(ctx, lockPrefix+job.JobID.String()).Result()
		if err != nil {
			return requeued, terminal, errors.Wrap(err, "queueRepo.RecoverStale.Exists")
		}
		if held > 0 {
			continue
		}

		if err := q.redisClient.LRem(ctx, q.cfg.Queue.ProcessingKey, 1, raw).Err(); err != nil {
			return requeued, terminal, errors.Wrap(err, "queueRepo.RecoverStale.LRem")
		}
		if job.Attempt >= q.cfg.Queue.MaxAttempts {
			if err := q.markFailed(ctx, job); err != nil {
				q.logger.Errorf("recording stale job %s as failed: %v", job.JobID, err)
			}
			terminal = append(terminal, job)
			continue
		}

		job.Attempt++
		payload, err := json.Marshal(job)
		if err != nil {
			q.logger.Errorf("remarshaling stale job %s: %v", job.JobID, err)
			continue
		}
		if err := q.redisClient.LPush(ctx, q.cfg.Queue.PendingKey, payload).Err(); err != nil {
			return requeued, terminal, errors.Wrap(err, "queueRepo.RecoverStale.LPush")
		}
		requeued++
	}
	return requeued, terminal, nil
}

func (q *queueRepo) markFailed(ctx context.Context, job *models.QueueJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "queueRepo.markFailed.Marshal")
	}
	if err := q.redisClient.LPush(ctx, q.cfg.Queue.FailedKey, payload).Err(); err != nil {
		return errors.Wrap(err, "queueRepo.markFailed.LPush")
	}
	resultKey := resultPrefix + job.JobID.String()
	if err := q.redisClient.Set(ctx, resultKey, string(models.JobStatusFailed), q.failedTTL()).Err(); err != nil {
		return errors.Wrap(err, "queueRepo.markFailed.Set")
	}
	return nil
}

// quarantine moves a raw payload that cannot be decoded off the processing
// list and onto the failed list.
func (q *queueRepo) quarantine(ctx context.Context, raw string) {
	if err := q.redisClient.LRem(ctx, q.cfg.Queue.ProcessingKey, 1, raw).Err(); err != nil {
		q.logger.Errorf("removing corrupt processing entry: %v", err)
	}
	if err := q.redisClient.LPush(ctx, q.cfg.Queue.FailedKey, raw).Err(); err != nil {
		q.logger.Errorf("quarantining corrupt entry: %v", err)
	}
}

func (q *queueRepo) releaseLock(ctx context.Context, job *models.QueueJob) {
	if err := q.redisClient.Del(ctx, lockPrefix+job.JobID.String()).Err(); err != nil {
		q.logger.Errorf("releasing lock for job %s: %v", job.JobID, err)
	}
}

func (q *queueRepo) backoff(attempt int) time.Duration {
	base := time.Duration(q.cfg.Queue.BackoffBaseSeconds) * time.Second
	return base << (attempt - 1)
}

func (q *queueRepo) lockTTL() time.Duration {
	return time.Duration(q.cfg.Queue.LockTTLMinutes) * time.Minute
}

func (q *queueRepo) completedTTL() time.Duration {
	return time.Duration(q.cfg.Queue.CompletedTTLHours) * time.Hour
}

func (q *queueRepo) failedTTL() time.Duration {
	return time.Duration(q.cfg.Queue.FailedTTLHours) * time.Hour
}
