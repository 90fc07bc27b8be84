package domain

import "time"

type ReplyCreationData struct {
	ThreadId  ThreadId
	Body      ReplyBody
	Bumped    bool
	Name      string
	Ident     string
	IpAddress string
}

type Reply struct {
	Id        ReplyId
	ThreadId  ThreadId
	Number    ReplyNumber
	Body      ReplyBody
	Bumped    bool
	Name      string
	Ident     string
	IpAddress string
	CreatedAt time.Time
}
