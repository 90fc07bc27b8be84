package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/backend/internal/queue"
	"github.com/itchan-dev/itboard/shared/domain"
	"github.com/itchan-dev/itboard/shared/logger"
	"golang.org/x/sync/errgroup"
)

type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Delivery, error)
	Complete(ctx context.Context, id domain.JobId, result job.Result) error
	Recover(ctx context.Context) (int, error)
	Heartbeat(ctx context.Context) error
	Release(ctx context.Context) error
}

type Executor interface {
	Execute(ctx context.Context, s job.Submission) job.Result
}

// Pool runs concurrency goroutines pulling from the queue. Each delivery is
// owned by the goroutine that dequeued it.
type Pool struct {
	queue       Queue
	executor    Executor
	concurrency int
	pollTimeout time.Duration
	errorDelay  time.Duration
	// heartbeatEvery must stay well below the queue's heartbeat TTL
	heartbeatEvery time.Duration
	log            *slog.Logger
}

func NewPool(q Queue, executor Executor, concurrency int, pollTimeout time.Duration) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		queue:       q,
		executor:    executor,
		concurrency: concurrency,
		pollTimeout:    pollTimeout,
		errorDelay:     time.Second,
		heartbeatEvery: queue.HeartbeatInterval,
		log:            logger.Component("worker"),
	}
}

// Run blocks until ctx is done. The job in hand when ctx is cancelled is
// finished and completed before Run returns. The heartbeat is kept up until
// then and released afterwards.
func (p *Pool) Run(ctx context.Context) error {
	if err := p.queue.Heartbeat(ctx); err != nil {
		return err
	}
	hbCtx, stopHeartbeat := context.WithCancel(context.WithoutCancel(ctx))
	var hb sync.WaitGroup
	hb.Add(1)
	go func() {
		defer hb.Done()
		p.heartbeat(hbCtx)
	}()
	defer func() {
		stopHeartbeat()
		hb.Wait()
		if err := p.queue.Release(context.WithoutCancel(ctx)); err != nil {
			p.log.Warn("failed to release worker heartbeat", "error", err)
		}
	}()

	moved, err := p.queue.Recover(ctx)
	if err != nil {
		return err
	}
	if moved > 0 {
		p.log.Info("requeued unfinished jobs", "count", moved)
	}
	p.log.Info("worker pool started", "concurrency", p.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		g.Go(func() error {
			p.loop(gctx)
			return nil
		})
	}
	err = g.Wait()
	p.log.Info("worker pool stopped")
	return err
}

func (p *Pool) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(p.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.queue.Heartbeat(ctx); err != nil && ctx.Err() == nil {
				p.log.Error("failed to refresh worker heartbeat", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) loop(ctx context.Context) {
	for ctx.Err() == nil {
		d, err := p.queue.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error("failed to dequeue", "error", err)
			select {
			case <-time.After(p.errorDelay):
			case <-ctx.Done():
				return
			}
			continue
		}
		if d == nil {
			continue
		}
		// finish the current job even if shutdown starts
		p.handle(context.WithoutCancel(ctx), d)
	}
}

func (p *Pool) handle(ctx context.Context, d *queue.Delivery) {
	var result job.Result
	var s job.Submission
	if err := json.Unmarshal(d.Payload, &s); err != nil {
		p.log.Error("malformed job payload", "job_id", d.Id, "error", err)
		result = job.InfraFailure{Message: "malformed job payload"}
	} else {
		result = p.executor.Execute(ctx, s)
	}

	if err := p.queue.Complete(ctx, d.Id, result); err != nil {
		// stays on the processing list; Recover redelivers it once this owner is gone
		p.log.Error("failed to store job result", "job_id", d.Id, "error", err)
	}
}
