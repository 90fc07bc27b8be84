// Package job holds the submission job model shared by the request path and
// the worker: the payload, the tagged result variant and the result proxy.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Kind names both what a submission creates and what a success result refers to.
type Kind string

const (
	KindThread Kind = "thread"
	KindReply  Kind = "reply"
)

var ErrMalformedResult = errors.New("malformed job result")

// Result is the outcome of a submission. The set of variants is closed:
// Created is the only success, every other variant is a failure.
type Result interface {
	Tag() string
	result()
}

type Created struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

type RateLimited struct {
	Timeleft int `json:"timeleft"`
}

type ParamsInvalid struct {
	Fields map[string][]string `json:"fields"`
}

type StatusRejected struct {
	Status string `json:"status"`
}

type SpamRejected struct{}

type DnsblRejected struct{}

type BanRejected struct{}

// InfraFailure is a submission that could not be committed, e.g. write
// conflict retries were exhausted. It is a fault, not a content decision.
type InfraFailure struct {
	Message string `json:"message"`
}

func (Created) Tag() string        { return "created" }
func (RateLimited) Tag() string    { return "rate_limited" }
func (ParamsInvalid) Tag() string  { return "params_invalid" }
func (StatusRejected) Tag() string { return "status_rejected" }
func (SpamRejected) Tag() string   { return "spam_rejected" }
func (DnsblRejected) Tag() string  { return "dnsbl_rejected" }
func (BanRejected) Tag() string    { return "ban_rejected" }
func (InfraFailure) Tag() string   { return "infra_failure" }

func (Created) result()        {}
func (RateLimited) result()    {}
func (ParamsInvalid) result()  {}
func (StatusRejected) result() {}
func (SpamRejected) result()   {}
func (DnsblRejected) result()  {}
func (BanRejected) result()    {}
func (InfraFailure) result()   {}

// StatusOf returns the terminal job status a result is stored under.
func StatusOf(r Result) Status {
	if _, ok := r.(Created); ok {
		return StatusSuccess
	}
	return StatusFailure
}

type envelope struct {
	Tag  string          `json:"tag"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode serializes r as {"tag": ..., "data": {...}}.
func Encode(r Result) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil result", ErrMalformedResult)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", r.Tag(), err)
	}
	return json.Marshal(envelope{Tag: r.Tag(), Data: data})
}

// Decode is the inverse of Encode. Unknown tags and undecodable bodies
// are reported as ErrMalformedResult.
func Decode(raw []byte) (Result, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	var r Result
	var err error
	switch env.Tag {
	case Created{}.Tag():
		var c Created
		err = decodeData(env.Data, &c)
		if err == nil && (c.ID == 0 || (c.Kind != KindThread && c.Kind != KindReply)) {
			err = fmt.Errorf("%w: created result without entity reference", ErrMalformedResult)
		}
		r = c
	case RateLimited{}.Tag():
		var rl RateLimited
		err = decodeData(env.Data, &rl)
		r = rl
	case ParamsInvalid{}.Tag():
		var pi ParamsInvalid
		err = decodeData(env.Data, &pi)
		r = pi
	case StatusRejected{}.Tag():
		var sr StatusRejected
		err = decodeData(env.Data, &sr)
		r = sr
	case SpamRejected{}.Tag():
		r = SpamRejected{}
	case DnsblRejected{}.Tag():
		r = DnsblRejected{}
	case BanRejected{}.Tag():
		r = BanRejected{}
	case InfraFailure{}.Tag():
		var f InfraFailure
		err = decodeData(env.Data, &f)
		r = f
	default:
		err = fmt.Errorf("%w: unknown tag %q", ErrMalformedResult, env.Tag)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	return nil
}
