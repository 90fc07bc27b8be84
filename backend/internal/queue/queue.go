// Package queue is the Redis-backed job queue and result backend.
//
// Layout:
//
//	job:<id>                         hash: status, kind, payload, result, created_at, completed_at
//	queue:<name>                     list of pending ids, LPUSH in, BLMOVE out
//	queue:<name>:processing:<owner> ids owned by one worker process
//	queue:<name>:owner:<owner>      heartbeat, expires when the process is gone
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/shared/domain"
	"github.com/itchan-dev/itboard/shared/logger"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultResultTTL = 24 * time.Hour
	// HeartbeatInterval is how often a live worker refreshes its owner key.
	HeartbeatInterval   = 5 * time.Second
	DefaultHeartbeatTTL = 3 * HeartbeatInterval
)

// completeScript writes the result only if none was written before, then
// acknowledges the delivery regardless.
var completeScript = redis.NewScript(`
local written = 0
if redis.call('HSETNX', KEYS[1], 'result', ARGV[1]) == 1 then
	redis.call('HSET', KEYS[1], 'status', ARGV[2], 'completed_at', ARGV[3])
	redis.call('EXPIRE', KEYS[1], ARGV[4])
	written = 1
end
redis.call('LREM', KEYS[2], 0, ARGV[5])
return written
`)

// reclaimScript moves a processing list back onto the queue unless its owner
// is still alive. Returns -1 for a live owner.
var reclaimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return -1
end
local moved = 0
while redis.call('LMOVE', KEYS[2], KEYS[3], 'RIGHT', 'RIGHT') do
	moved = moved + 1
end
return moved
`)

// Delivery is a job handed to exactly one worker.
type Delivery struct {
	Id      domain.JobId
	Kind    job.Kind
	Payload []byte
}

type Queue struct {
	rdb          *redis.Client
	name         string
	owner        string
	resultTTL    time.Duration
	heartbeatTTL time.Duration
	now          func() time.Time
	log          *slog.Logger
}

type Option func(*Queue)

// WithWorkerID sets the readable prefix of the owner id. A random suffix is
// always appended, so processes sharing a prefix never share a processing list.
func WithWorkerID(id string) Option {
	return func(q *Queue) {
		if id != "" {
			q.owner = id
		}
	}
}

// WithHeartbeatTTL sets how long an owner stays alive without a heartbeat.
func WithHeartbeatTTL(ttl time.Duration) Option {
	return func(q *Queue) {
		if ttl > 0 {
			q.heartbeatTTL = ttl
		}
	}
}

func WithResultTTL(ttl time.Duration) Option {
	return func(q *Queue) {
		if ttl > 0 {
			q.resultTTL = ttl
		}
	}
}

func New(rdb *redis.Client, name string, opts ...Option) *Queue {
	q := &Queue{
		rdb:          rdb,
		name:         name,
		owner:        "worker",
		resultTTL:    DefaultResultTTL,
		heartbeatTTL: DefaultHeartbeatTTL,
		now:          time.Now,
		log:          logger.Component("queue"),
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		q.owner = host
	}
	for _, opt := range opts {
		opt(q)
	}
	q.owner = fmt.Sprintf("%s:%d:%s", q.owner, os.Getpid(), uuid.NewString()[:8])
	return q
}

// Owner identifies this process's processing list.
func (q *Queue) Owner() string { return q.owner }

func jobKey(id domain.JobId) string { return "job:" + id }

func (q *Queue) queueKey() string { return "queue:" + q.name }

func (q *Queue) processingPrefix() string { return q.queueKey() + ":processing:" }

func (q *Queue) processingKey() string { return q.processingPrefix() + q.owner }

func (q *Queue) ownerKey(owner string) string { return q.queueKey() + ":owner:" + owner }

// Enqueue stores the job as queued and appends it to the queue.
func (q *Queue) Enqueue(ctx context.Context, kind job.Kind, payload any) (domain.JobId, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode job payload: %w", err)
	}
	id := uuid.NewString()

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobKey(id),
			"status", string(job.StatusQueued),
			"kind", string(kind),
			"payload", body,
			"created_at", q.now().Unix(),
		)
		pipe.Expire(ctx, jobKey(id), q.resultTTL)
		pipe.LPush(ctx, q.queueKey(), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return id, nil
}

// Dequeue blocks up to timeout for the next job and moves it onto this
// worker's processing list atomically. Heartbeat must have been called first,
// otherwise another process may reclaim the job. Returns nil on timeout. Jobs whose
// hash expired or that already hold a result are acknowledged and skipped.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	id, err := q.rdb.BLMove(ctx, q.queueKey(), q.processingKey(), "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	fields, err := q.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	if len(fields) == 0 || job.Status(fields["status"]).Terminal() {
		q.log.Warn("skipping stale delivery", "job_id", id, "status", fields["status"])
		if err := q.ack(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := q.rdb.HSet(ctx, jobKey(id), "status", string(job.StatusPending)).Err(); err != nil {
		return nil, fmt.Errorf("failed to mark job %s pending: %w", id, err)
	}
	return &Delivery{Id: id, Kind: job.Kind(fields["kind"]), Payload: []byte(fields["payload"])}, nil
}

// Complete writes the terminal status and result exactly once and
// acknowledges the delivery. Later calls for the same id only acknowledge.
func (q *Queue) Complete(ctx context.Context, id domain.JobId, result job.Result) error {
	encoded, err := job.Encode(result)
	if err != nil {
		return err
	}
	written, err := completeScript.Run(ctx, q.rdb,
		[]string{jobKey(id), q.processingKey()},
		encoded,
		string(job.StatusOf(result)),
		q.now().Unix(),
		strconv.Itoa(int(q.resultTTL.Seconds())),
		id,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	if written == 0 {
		q.log.Warn("job already completed, result kept", "job_id", id)
	}
	return nil
}

// Heartbeat marks this process alive for the heartbeat TTL. Call it at
// least every HeartbeatInterval while deliveries are in hand.
func (q *Queue) Heartbeat(ctx context.Context) error {
	if err := q.rdb.Set(ctx, q.ownerKey(q.owner), q.now().Unix(), q.heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh heartbeat: %w", err)
	}
	return nil
}

// Release drops the heartbeat so unacknowledged jobs become reclaimable
// without waiting for the TTL.
func (q *Queue) Release(ctx context.Context) error {
	if err := q.rdb.Del(ctx, q.ownerKey(q.owner)).Err(); err != nil {
		return fmt.Errorf("failed to release owner: %w", err)
	}
	return nil
}

// Recover puts jobs held by dead owners back on the queue. Lists of owners
// with a live heartbeat, this one included, are left alone. Delivery is
// at-least-once; completed jobs are skipped by Dequeue.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	moved := 0
	prefix := q.processingPrefix()
	iter := q.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		list := iter.Val()
		owner := strings.TrimPrefix(list, prefix)
		if owner == q.owner {
			continue
		}
		n, err := reclaimScript.Run(ctx, q.rdb, []string{q.ownerKey(owner), list, q.queueKey()}).Int()
		if err != nil {
			return moved, fmt.Errorf("failed to recover jobs of %s: %w", owner, err)
		}
		if n > 0 {
			q.log.Info("reclaimed jobs of dead worker", "owner", owner, "count", n)
			moved += n
		}
	}
	if err := iter.Err(); err != nil {
		return moved, fmt.Errorf("failed to scan processing lists: %w", err)
	}
	return moved, nil
}

// GetStatus reports StatusQueued for unknown ids.
func (q *Queue) GetStatus(ctx context.Context, id domain.JobId) (job.Status, error) {
	status, err := q.rdb.HGet(ctx, jobKey(id), "status").Result()
	if errors.Is(err, redis.Nil) {
		return job.StatusQueued, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get job status: %w", err)
	}
	return job.Status(status), nil
}

func (q *Queue) GetResult(ctx context.Context, id domain.JobId) ([]byte, error) {
	result, err := q.rdb.HGet(ctx, jobKey(id), "result").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job result: %w", err)
	}
	return result, nil
}

// Len is the number of jobs waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.queueKey()).Result()
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *Queue) ack(ctx context.Context, id domain.JobId) error {
	if err := q.rdb.LRem(ctx, q.processingKey(), 0, id).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge job %s: %w", id, err)
	}
	return nil
}
