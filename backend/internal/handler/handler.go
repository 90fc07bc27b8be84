// Package handler is the JSON surface over the submission service.
package handler

import (
	"context"

	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/backend/internal/service"
	"github.com/itchan-dev/itboard/shared/domain"
	"github.com/itchan-dev/itboard/shared/markdown"
)

// maxBodyBytes bounds a submission request body. The largest valid form is
// well below it.
const maxBodyBytes = 64 << 10

type SubmissionService interface {
	CreateThread(ctx context.Context, slug domain.BoardSlug, form service.ThreadForm, client domain.ClientInfo) (domain.JobId, error)
	CreateReply(ctx context.Context, slug domain.BoardSlug, threadId domain.ThreadId, form service.ReplyForm, client domain.ClientInfo) (domain.JobId, error)
	Poll(ctx context.Context, id domain.JobId) (*job.Proxy, error)
}

// HealthChecker is anything Ready must be able to reach.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	submission SubmissionService
	health     HealthChecker
	text       *markdown.TextProcessor
}

func New(submission SubmissionService, health HealthChecker, text *markdown.TextProcessor) *Handler {
	return &Handler{
		submission: submission,
		health:     health,
		text:       text,
	}
}
