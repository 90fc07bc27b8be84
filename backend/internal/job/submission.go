package job

import (
	"time"

	"github.com/itchan-dev/itboard/shared/domain"
)

// Submission is the job payload carried from the request path to the worker.
// Only ids are carried; the worker reloads the board and thread itself.
type Submission struct {
	Kind        Kind              `json:"kind"`
	BoardId     domain.BoardId    `json:"board_id"`
	ThreadId    domain.ThreadId   `json:"thread_id,omitempty"`
	Title       string            `json:"title,omitempty"`
	Body        string            `json:"body"`
	Bumped      bool              `json:"bumped"`
	Client      domain.ClientInfo `json:"client"`
	SubmittedAt time.Time         `json:"submitted_at"`
}
