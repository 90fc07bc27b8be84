// Package worker executes queued submissions: it reloads the target,
// moderates, and commits with bounded retry on write conflicts.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/backend/internal/moderation"
	"github.com/itchan-dev/itboard/shared/domain"
	internal_errors "github.com/itchan-dev/itboard/shared/errors"
	"github.com/itchan-dev/itboard/shared/logger"
	"github.com/itchan-dev/itboard/shared/utils"
)

type ContentStore interface {
	GetBoard(ctx context.Context, id domain.BoardId) (domain.Board, error)
	GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error)
	CreateThread(ctx context.Context, data domain.ThreadCreationData) (domain.ThreadId, error)
	// CreateReply must return an error matching the conflict predicate when
	// the reply number was taken concurrently, with the attempt rolled back.
	CreateReply(ctx context.Context, data domain.ReplyCreationData, lockAt int) (domain.ReplyId, error)
}

type Worker struct {
	store       ContentStore
	pipeline    *moderation.Pipeline
	identSecret string
	defaultName string
	attempts    int
	isConflict  func(error) bool
	now         func() time.Time
}

type Option func(*Worker)

func WithDefaultName(name string) Option {
	return func(w *Worker) { w.defaultName = name }
}

// WithConflictPredicate replaces IsWriteConflict.
func WithConflictPredicate(fn func(error) bool) Option {
	return func(w *Worker) { w.isConflict = fn }
}

func New(store ContentStore, pipeline *moderation.Pipeline, identSecret string, opts ...Option) *Worker {
	w := &Worker{
		store:       store,
		pipeline:    pipeline,
		identSecret: identSecret,
		defaultName: "Nameless",
		attempts:    MaxAttempts,
		isConflict:  IsWriteConflict,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Execute runs one submission to its terminal result. It never returns a
// nil result; infrastructure errors become job.InfraFailure.
func (w *Worker) Execute(ctx context.Context, s job.Submission) job.Result {
	result := w.execute(ctx, s)
	submissionsTotal.WithLabelValues(string(s.Kind), result.Tag()).Inc()
	return result
}

func (w *Worker) execute(ctx context.Context, s job.Submission) job.Result {
	log := logger.Component("worker").With("kind", s.Kind, "board_id", s.BoardId, "thread_id", s.ThreadId)

	board, err := w.store.GetBoard(ctx, s.BoardId)
	if err != nil {
		return w.loadFailure(log, "board", err)
	}

	candidate := moderation.Candidate{
		Kind:   s.Kind,
		Board:  board,
		Title:  s.Title,
		Body:   s.Body,
		Client: s.Client,
	}
	switch s.Kind {
	case job.KindThread:
		// board status alone decides
	case job.KindReply:
		thread, err := w.store.GetThread(ctx, s.ThreadId)
		if err != nil {
			return w.loadFailure(log, "thread", err)
		}
		if thread.BoardId != board.Id {
			log.Warn("thread does not belong to board")
			return job.InfraFailure{Message: "thread not found"}
		}
		candidate.Thread = &thread
	default:
		log.Error("unknown submission kind")
		return job.InfraFailure{Message: "unknown submission kind"}
	}

	if r := w.pipeline.Run(ctx, candidate); r != nil {
		log.Info("submission rejected", "reason", r.Tag())
		return r
	}

	reply := w.replyData(board, s)
	var created job.Created
	attempts, err := withRetry(ctx, w.attempts, w.isConflict, func(attempt int) error {
		if attempt > 1 {
			log.Debug("retrying commit after write conflict", "attempt", attempt)
		}
		if s.Kind == job.KindThread {
			id, err := w.store.CreateThread(ctx, domain.ThreadCreationData{BoardId: board.Id, Title: s.Title, OpReply: reply})
			created = job.Created{Kind: job.KindThread, ID: id}
			return err
		}
		reply.ThreadId = s.ThreadId
		id, err := w.store.CreateReply(ctx, reply, board.Settings.MaxPosts)
		created = job.Created{Kind: job.KindReply, ID: id}
		return err
	})
	switch {
	case errors.Is(err, ErrConflictsExhausted):
		conflictsExhausted.Inc()
		log.Error("giving up on submission after repeated write conflicts", "attempts", attempts, "error", err)
		return job.InfraFailure{Message: ErrConflictsExhausted.Error()}
	case errors.Is(err, internal_errors.ErrNotFound):
		log.Warn("submission target vanished before commit", "error", err)
		return job.InfraFailure{Message: string(s.Kind) + " target not found"}
	case err != nil:
		log.Error("failed to commit submission", "attempts", attempts, "error", err)
		return job.InfraFailure{Message: "commit failed"}
	}

	commitAttempts.Observe(float64(attempts))
	log.Info("submission committed", "created", created.Kind, "id", created.ID, "attempts", attempts)
	return created
}

func (w *Worker) loadFailure(log *slog.Logger, entity string, err error) job.Result {
	if errors.Is(err, internal_errors.ErrNotFound) {
		log.Warn(entity+" not found at execution time", "error", err)
		return job.InfraFailure{Message: entity + " not found"}
	}
	log.Error("failed to load "+entity, "error", err)
	return job.InfraFailure{Message: "failed to load " + entity}
}

func (w *Worker) replyData(board domain.Board, s job.Submission) domain.ReplyCreationData {
	name := board.Settings.Name
	if name == "" {
		name = w.defaultName
	}
	at := s.SubmittedAt
	if at.IsZero() {
		at = w.now()
	}
	return domain.ReplyCreationData{
		Body:      s.Body,
		Bumped:    s.Bumped,
		Name:      name,
		Ident:     utils.Ident(w.identSecret, board.Slug, s.Client.IpAddress, at),
		IpAddress: s.Client.IpAddress,
	}
}
