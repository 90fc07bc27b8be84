package domain

import "time"

type Ban struct {
	Id          int64
	IpAddress   string // single address or CIDR range
	Description string
	Active      bool
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}
