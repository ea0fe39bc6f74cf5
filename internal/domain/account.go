package domain

import "time"

// AccountSnapshot is overwritten on every heartbeat.
type AccountSnapshot struct {
	Balance   float64   `json:"balance"`
	Equity    float64   `json:"equity"`
	Margin    float64   `json:"margin"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConnState int

const (
	ConnUnknown ConnState = iota
	ConnConnected
	ConnDisconnected
)

func (s ConnState) String() string {
	switch s {
	case ConnConnected:
		return "CONNECTED"
	case ConnDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}
