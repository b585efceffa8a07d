package bitbuf

import "errors"

// Buffer errors.
var (
	// ErrUnderflow is returned when a pull would read past the end of the
	// buffer's readable data.
	ErrUnderflow = errors.New("bitbuf: not enough bytes remaining")
)
