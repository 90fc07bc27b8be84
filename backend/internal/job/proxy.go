package job

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itchan-dev/itboard/shared/domain"
	internal_errors "github.com/itchan-dev/itboard/shared/errors"
)

// ErrNotReady is returned by Proxy.Object while the job is queued or pending.
var ErrNotReady = errors.New("job result is not ready")

// Backend is the read side of the job queue.
type Backend interface {
	// GetStatus reports StatusQueued for ids it has never seen.
	GetStatus(ctx context.Context, id domain.JobId) (Status, error)
	// GetResult returns the encoded result, or nil if none was written yet.
	GetResult(ctx context.Context, id domain.JobId) ([]byte, error)
}

// Loader resolves the entity a success result refers to.
type Loader interface {
	GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error)
	GetReply(ctx context.Context, id domain.ReplyId) (domain.Reply, error)
}

// Proxy is a snapshot of a job taken at construction time. The result is
// decoded and its entity loaded only when Object is first called.
type Proxy struct {
	id     domain.JobId
	status Status
	raw    []byte
	loader Loader

	mu     sync.Mutex
	loaded bool
	obj    any
	err    error
}

func NewProxy(ctx context.Context, backend Backend, loader Loader, id domain.JobId) (*Proxy, error) {
	status, err := backend.GetStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get status of job %s: %w", id, err)
	}
	p := &Proxy{id: id, status: status, loader: loader}
	if status.Terminal() {
		if p.raw, err = backend.GetResult(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to get result of job %s: %w", id, err)
		}
	}
	return p, nil
}

func (p *Proxy) Id() domain.JobId { return p.id }

func (p *Proxy) Status() Status { return p.status }

func (p *Proxy) Successful() bool { return p.status == StatusSuccess }

// Result decodes the raw result without touching the content store.
func (p *Proxy) Result() (Result, error) {
	if !p.status.Terminal() {
		return nil, ErrNotReady
	}
	if p.raw == nil {
		return nil, fmt.Errorf("%w: terminal job %s has no result", ErrMalformedResult, p.id)
	}
	r, err := Decode(p.raw)
	if err != nil {
		return nil, err
	}
	if StatusOf(r) != p.status {
		return nil, fmt.Errorf("%w: %s result stored under status %s", ErrMalformedResult, r.Tag(), p.status)
	}
	return r, nil
}

// Object resolves the job outcome. On success it returns the created
// domain.Thread or domain.Reply. On failure it returns a nil object and the
// typed rejection error. Loader errors are not memoized.
func (p *Proxy) Object(ctx context.Context) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.obj, p.err
	}

	r, err := p.Result()
	if err != nil {
		return nil, err
	}

	created, ok := r.(Created)
	if !ok {
		p.loaded, p.err = true, ResultError(r)
		return nil, p.err
	}

	var obj any
	switch created.Kind {
	case KindThread:
		obj, err = p.loader.GetThread(ctx, domain.ThreadId(created.ID))
	case KindReply:
		obj, err = p.loader.GetReply(ctx, domain.ReplyId(created.ID))
	default:
		return nil, fmt.Errorf("%w: unknown entity kind %q", ErrMalformedResult, created.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %d: %w", created.Kind, created.ID, err)
	}
	p.loaded, p.obj = true, obj
	return obj, nil
}

// ResultError maps a failure result to its typed error. A Created result maps to nil.
func ResultError(r Result) error {
	switch r := r.(type) {
	case Created:
		return nil
	case RateLimited:
		return &internal_errors.RateLimitedError{Timeleft: r.Timeleft}
	case ParamsInvalid:
		return &internal_errors.ParamsInvalidError{Fields: r.Fields}
	case StatusRejected:
		return &internal_errors.StatusRejectedError{Status: r.Status}
	case SpamRejected:
		return &internal_errors.SpamRejectedError{}
	case DnsblRejected:
		return &internal_errors.DnsblRejectedError{}
	case BanRejected:
		return &internal_errors.BanRejectedError{}
	case InfraFailure:
		return &internal_errors.InfrastructureError{Message: r.Message}
	default:
		return fmt.Errorf("%w: unexpected result type %T", ErrMalformedResult, r)
	}
}
