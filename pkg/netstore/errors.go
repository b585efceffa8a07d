package netstore

import "errors"

// Network record store errors.
var (
	ErrNetworkNotFound  = errors.New("netstore: network record not found")
	ErrNetworkExists    = errors.New("netstore: network record already exists")
	ErrInvalidNetKey    = errors.New("netstore: net_key must be 16 bytes")
	ErrSeqRegression    = errors.New("netstore: seq would regress")
	ErrIVIndexRegression = errors.New("netstore: iv_index would regress")

	errSeqOutOfRange = errors.New("netstore: seq exceeds 24-bit range")
)
