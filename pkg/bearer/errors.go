package bearer

import "errors"

// Bearer errors.
var (
	ErrUnknownChannel = errors.New("bearer: unknown channel")
	ErrRecvTimeout    = errors.New("bearer: recv timed out")
	ErrSendFull       = errors.New("bearer: send queue full")
	ErrClosed         = errors.New("bearer: bearer closed")
)

// Channel names, per the dongle driver contract.
const (
	ChannelBeacon  = "beacon"
	ChannelProv    = "prov"
	ChannelMessage = "message"
)
