package handler

import (
	"time"

	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/shared/domain"
)

// TaskResponse is the projection of a submission job. Data is set only on
// success and holds a ThreadResponse or ReplyResponse.
type TaskResponse struct {
	Type   string     `json:"type"`
	Id     string     `json:"id"`
	Status job.Status `json:"status"`
	Path   string     `json:"path"`
	Data   any        `json:"data,omitempty"`
}

type ThreadResponse struct {
	Type      string    `json:"type"`
	Id        int64     `json:"id"`
	BoardId   int64     `json:"board_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	PostCount int       `json:"post_count"`
	CreatedAt time.Time `json:"created_at"`
	BumpedAt  time.Time `json:"bumped_at"`
	PostedAt  time.Time `json:"posted_at"`
}

type ReplyResponse struct {
	Type          string    `json:"type"`
	Id            int64     `json:"id"`
	ThreadId      int64     `json:"thread_id"`
	Number        int       `json:"number"`
	Body          string    `json:"body"`
	BodyFormatted string    `json:"body_formatted"`
	Bumped        bool      `json:"bumped"`
	Name          string    `json:"name"`
	Ident         string    `json:"ident"`
	CreatedAt     time.Time `json:"created_at"`
}

func taskPath(id domain.JobId) string {
	return "/v1/tasks/" + id
}

func newTaskResponse(id domain.JobId, status job.Status) TaskResponse {
	return TaskResponse{Type: "task", Id: id, Status: status, Path: taskPath(id)}
}

func newThreadResponse(t domain.Thread) ThreadResponse {
	return ThreadResponse{
		Type:      "thread",
		Id:        t.Id,
		BoardId:   t.BoardId,
		Title:     t.Title,
		Status:    t.Status,
		PostCount: t.PostCount,
		CreatedAt: t.CreatedAt,
		BumpedAt:  t.BumpedAt,
		PostedAt:  t.PostedAt,
	}
}

// ip_address is never exposed; ident stands in for it.
func (h *Handler) newReplyResponse(r domain.Reply) ReplyResponse {
	return ReplyResponse{
		Type:          "reply",
		Id:            r.Id,
		ThreadId:      r.ThreadId,
		Number:        r.Number,
		Body:          r.Body,
		BodyFormatted: h.text.Format(r.Body),
		Bumped:        r.Bumped,
		Name:          r.Name,
		Ident:         r.Ident,
		CreatedAt:     r.CreatedAt,
	}
}
