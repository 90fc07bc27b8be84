// Package moderation runs the ordered checks a submission must pass before
// it is committed.
package moderation

import (
	"context"

	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/shared/domain"
	"github.com/itchan-dev/itboard/shared/logger"
)

// Candidate is a submission together with the freshly loaded state it targets.
// Thread is nil when the submission creates a new thread.
type Candidate struct {
	Kind   job.Kind
	Board  domain.Board
	Thread *domain.Thread
	Title  string
	Body   string
	Client domain.ClientInfo
}

// Classifier scores content. Title is empty for replies.
type Classifier interface {
	Spam(ctx context.Context, body, title string, client domain.ClientInfo) (bool, error)
}

// Reputation reports whether a network origin is publicly listed as abusive.
type Reputation interface {
	Listed(ctx context.Context, ipAddress string) (bool, error)
}

// Check returns nil to pass, or exactly one rejection.
type Check func(ctx context.Context, c Candidate) job.Result

type Pipeline struct {
	checks []Check
}

func New(checks ...Check) *Pipeline {
	return &Pipeline{checks: checks}
}

// Default is status, then spam classification, then origin reputation.
// Structural checks come first so the network lookups are skipped when they fail.
func Default(classifier Classifier, reputation Reputation) *Pipeline {
	return New(StatusCheck, SpamCheck(classifier), DnsblCheck(reputation))
}

// Run returns the first rejection, or nil if every check passed.
// Checks after the first rejection are not run.
func (p *Pipeline) Run(ctx context.Context, c Candidate) job.Result {
	for _, check := range p.checks {
		if r := check(ctx, c); r != nil {
			return r
		}
	}
	return nil
}

// StatusCheck requires an open board for new threads. Replies are allowed on
// open and restricted boards, and only into open threads.
func StatusCheck(_ context.Context, c Candidate) job.Result {
	if c.Kind == job.KindThread {
		if c.Board.Status != domain.StatusOpen {
			return job.StatusRejected{Status: c.Board.Status}
		}
		return nil
	}

	switch c.Board.Status {
	case domain.StatusLocked, domain.StatusArchived:
		return job.StatusRejected{Status: c.Board.Status}
	}
	if c.Thread == nil {
		return job.InfraFailure{Message: "thread not found"}
	}
	if c.Thread.Status != domain.StatusOpen {
		return job.StatusRejected{Status: c.Thread.Status}
	}
	return nil
}

// SpamCheck fails open: a classifier error lets the submission through.
func SpamCheck(classifier Classifier) Check {
	return func(ctx context.Context, c Candidate) job.Result {
		spam, err := classifier.Spam(ctx, c.Body, c.Title, c.Client)
		if err != nil {
			logger.Component("moderation").Warn("spam classifier unavailable, accepting submission", "error", err)
			return nil
		}
		if spam {
			return job.SpamRejected{}
		}
		return nil
	}
}

// DnsblCheck fails open: a lookup error lets the submission through.
func DnsblCheck(reputation Reputation) Check {
	return func(ctx context.Context, c Candidate) job.Result {
		listed, err := reputation.Listed(ctx, c.Client.IpAddress)
		if err != nil {
			logger.Component("moderation").Warn("reputation lookup failed, accepting submission", "error", err)
			return nil
		}
		if listed {
			return job.DnsblRejected{}
		}
		return nil
	}
}
