package domain

import "time"

// to iterate thru layers: service -> worker -> storage
type ThreadCreationData struct {
	BoardId BoardId
	Title   ThreadTitle
	OpReply ReplyCreationData
}

type Thread struct {
	Id        ThreadId
	BoardId   BoardId
	Title     ThreadTitle
	Status    string
	PostCount int
	CreatedAt time.Time
	BumpedAt  time.Time
	PostedAt  time.Time
}
