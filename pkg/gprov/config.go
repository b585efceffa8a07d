package gprov

import "time"

// Default timing constants for the generic provisioning layer.
const (
	DefaultAckTimeout  = 30 * time.Second
	DefaultAckWaitMargin = 5 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Config carries the generic provisioning layer's timing parameters.
// A zero Config is equivalent to Default(): every zero-valued field
// falls back to its documented default.
type Config struct {
	// AckTimeout is how long the ack watcher waits for an ACK before
	// declaring the transaction timed out.
	AckTimeout time.Duration

	// AckWait is how long the outer send path waits on the
	// done-or-timeout event; it must exceed AckTimeout to give the
	// watcher margin to report.
	AckWait time.Duration

	// PollInterval is the per-attempt receive timeout the ack watcher
	// uses while polling the bearer.
	PollInterval time.Duration
}

// Default returns Config with every field set to its documented default:
// a 30s ack timeout, 35s combined wait, and 500ms poll interval.
func Default() Config {
	return Config{
		AckTimeout:   DefaultAckTimeout,
		AckWait:      DefaultAckTimeout + DefaultAckWaitMargin,
		PollInterval: DefaultPollInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.AckTimeout == 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.AckWait == 0 {
		c.AckWait = c.AckTimeout + DefaultAckWaitMargin
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}
