package domain

import "errors"

var (
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrStrategy            = errors.New("strategy computation error")
	ErrOrderRejected       = errors.New("order rejected")
	ErrNotConnected        = errors.New("gateway not connected")
)
