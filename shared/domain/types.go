package domain

type (
	BoardId    = int64
	BoardSlug  = string
	BoardTitle = string

	ThreadId    = int64
	ThreadTitle = string

	ReplyId     = int64
	ReplyNumber = int
	ReplyBody   = string

	JobId = string
)

// Statuses shared by boards and threads. Restricted applies to boards only.
const (
	StatusOpen       = "open"
	StatusRestricted = "restricted"
	StatusLocked     = "locked"
	StatusArchived   = "archived"
)
