// Package service is the request path of a submission. It validates, checks
// bans and rate limits, and enqueues; it never writes content itself.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/shared/domain"
	internal_errors "github.com/itchan-dev/itboard/shared/errors"
	"github.com/itchan-dev/itboard/shared/logger"
	"github.com/itchan-dev/itboard/shared/utils"
)

type ContentStore interface {
	GetBoardBySlug(ctx context.Context, slug domain.BoardSlug) (domain.Board, error)
	GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error)
	GetReply(ctx context.Context, id domain.ReplyId) (domain.Reply, error)
}

type JobQueue interface {
	job.Backend
	Enqueue(ctx context.Context, kind job.Kind, payload any) (domain.JobId, error)
}

type RateLimiter interface {
	Limited(ctx context.Context, namespace, identity string) (bool, error)
	Timeleft(ctx context.Context, namespace, identity string) (int, error)
	Limit(ctx context.Context, namespace, identity string, seconds int) error
}

type BanList interface {
	IsBanned(ipAddress string) bool
}

type ThreadForm struct {
	Title string `json:"title" validate:"required,min=5,max=200"`
	Body  string `json:"body" validate:"required,min=5,max=4000"`
}

type ReplyForm struct {
	Body string `json:"body" validate:"required,min=2,max=4000"`
	// nil means bump
	Bumped *bool `json:"bumped"`
}

type Submission struct {
	store       ContentStore
	queue       JobQueue
	limiter     RateLimiter
	bans        BanList
	identSecret string
	now         func() time.Time
}

func New(store ContentStore, queue JobQueue, limiter RateLimiter, bans BanList, identSecret string) *Submission {
	return &Submission{
		store:       store,
		queue:       queue,
		limiter:     limiter,
		bans:        bans,
		identSecret: identSecret,
		now:         time.Now,
	}
}

func (s *Submission) CreateThread(ctx context.Context, slug domain.BoardSlug, form ThreadForm, client domain.ClientInfo) (domain.JobId, error) {
	board, err := s.store.GetBoardBySlug(ctx, slug)
	if err != nil {
		return "", err
	}

	form.Title = strings.TrimSpace(form.Title)
	form.Body = strings.TrimSpace(form.Body)
	if err := utils.Validate(&form); err != nil {
		return "", err
	}

	return s.submit(ctx, board, client, job.Submission{
		Kind:    job.KindThread,
		BoardId: board.Id,
		Title:   form.Title,
		Body:    form.Body,
		Bumped:  true,
	})
}

func (s *Submission) CreateReply(ctx context.Context, slug domain.BoardSlug, threadId domain.ThreadId, form ReplyForm, client domain.ClientInfo) (domain.JobId, error) {
	board, err := s.store.GetBoardBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	thread, err := s.store.GetThread(ctx, threadId)
	if err != nil {
		return "", err
	}
	if thread.BoardId != board.Id {
		return "", fmt.Errorf("thread %d on board %s: %w", threadId, slug, internal_errors.ErrNotFound)
	}

	form.Body = strings.TrimSpace(form.Body)
	if err := utils.Validate(&form); err != nil {
		return "", err
	}
	bumped := true
	if form.Bumped != nil {
		bumped = *form.Bumped
	}

	return s.submit(ctx, board, client, job.Submission{
		Kind:     job.KindReply,
		BoardId:  board.Id,
		ThreadId: thread.Id,
		Body:     form.Body,
		Bumped:   bumped,
	})
}

// submit applies the ban list and the per-board throttle, then enqueues.
// The throttle is set only once the job is accepted by the queue.
func (s *Submission) submit(ctx context.Context, board domain.Board, client domain.ClientInfo, sub job.Submission) (domain.JobId, error) {
	log := logger.Component("service").With("board", board.Slug, "kind", sub.Kind)

	if s.bans.IsBanned(client.IpAddress) {
		log.Info("submission from banned address")
		return "", &internal_errors.BanRejectedError{}
	}

	identity := utils.Digest(s.identSecret, client.IpAddress)
	limited, err := s.limiter.Limited(ctx, board.Slug, identity)
	if err != nil {
		return "", err
	}
	if limited {
		timeleft, err := s.limiter.Timeleft(ctx, board.Slug, identity)
		if err != nil {
			return "", err
		}
		return "", &internal_errors.RateLimitedError{Timeleft: timeleft}
	}

	sub.Client = client
	sub.SubmittedAt = s.now().UTC()
	id, err := s.queue.Enqueue(ctx, sub.Kind, sub)
	if err != nil {
		return "", err
	}

	if err := s.limiter.Limit(ctx, board.Slug, identity, board.PostDelay()); err != nil {
		log.Warn("failed to set rate limit after enqueue", "job_id", id, "error", err)
	}
	log.Debug("submission enqueued", "job_id", id)
	return id, nil
}

// Poll snapshots the job. Unknown ids are reported as queued.
func (s *Submission) Poll(ctx context.Context, id domain.JobId) (*job.Proxy, error) {
	if id == "" {
		return nil, fmt.Errorf("empty job id: %w", internal_errors.ErrNotFound)
	}
	return job.NewProxy(ctx, s.queue, s.store, id)
}
