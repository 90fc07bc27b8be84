package domain

// ClientInfo is the request metadata captured when a submission is accepted.
// It travels with the job so the worker never touches the HTTP request.
type ClientInfo struct {
	IpAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}
