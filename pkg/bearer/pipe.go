package bearer

import (
	"fmt"
	"sync"
	"time"

	"github.com/pion/logging"
)

// chanSet holds one buffered channel per named channel, so that a Recv
// for "prov" never competes with frames meant for "beacon" or "message".
type chanSet struct {
	beacon  chan []byte
	prov    chan []byte
	message chan []byte
}

const pipeQueueDepth = 32

func newChanSet() *chanSet {
	return &chanSet{
		beacon:  make(chan []byte, pipeQueueDepth),
		prov:    make(chan []byte, pipeQueueDepth),
		message: make(chan []byte, pipeQueueDepth),
	}
}

func (c *chanSet) get(channel string) (chan []byte, error) {
	switch channel {
	case ChannelBeacon:
		return c.beacon, nil
	case ChannelProv:
		return c.prov, nil
	case ChannelMessage:
		return c.message, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
}

func (c *chanSet) closeAll() {
	close(c.beacon)
	close(c.prov)
	close(c.message)
}

// Pipe is an in-memory, two-ended bearer: frames sent on one end's Send
// arrive on the other end's Recv for the same channel. This follows the
// teacher's virtual-network pipe pattern, generalized from a raw
// net.Conn byte stream to the bearer's discrete, channel-tagged frames.
type Pipe struct {
	out *chanSet
	in  *chanSet

	mu     sync.Mutex
	closed bool
	log    logging.LeveledLogger
}

// NewPipe returns two connected Pipe endpoints. Frames sent on end0
// arrive on end1's Recv, and vice versa.
func NewPipe() (*Pipe, *Pipe) {
	return NewPipeWithLogger(nil, nil)
}

// NewPipeWithLogger is like NewPipe but attaches a logger to each end,
// following the teacher's constructor-injected LeveledLogger pattern. A
// nil logger disables logging on that end.
func NewPipeWithLogger(log0, log1 logging.LeveledLogger) (*Pipe, *Pipe) {
	c01 := newChanSet()
	c10 := newChanSet()

	end0 := &Pipe{out: c01, in: c10, log: log0}
	end1 := &Pipe{out: c10, in: c01, log: log1}
	return end0, end1
}

// Send enqueues frame on the named channel for delivery to the peer end.
// linkID is accepted for interface compatibility but otherwise only used
// for logging, since the pipe simulates a single link at a time.
func (p *Pipe) Send(linkID *uint32, channel string, frame []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	ch, err := p.out.get(channel)
	if err != nil {
		return err
	}

	select {
	case ch <- frame:
		if p.log != nil {
			p.log.Debugf("bearer: sent %d bytes on %q (link=%v)", len(frame), channel, linkID)
		}
		return nil
	default:
		return ErrSendFull
	}
}

// Recv pulls the next frame tagged for channel. If count <= 0 it is
// treated as 1. If perTry <= 0, the first attempt blocks with no
// deadline; otherwise each of the count attempts waits up to perTry
// before moving to the next one, returning ErrRecvTimeout if none
// succeed.
func (p *Pipe) Recv(channel string, count int, perTry time.Duration) ([]byte, error) {
	ch, err := p.in.get(channel)
	if err != nil {
		return nil, err
	}

	if count <= 0 {
		count = 1
	}

	if perTry <= 0 {
		frame, ok := <-ch
		if !ok {
			return nil, ErrClosed
		}
		return frame, nil
	}

	for i := 0; i < count; i++ {
		select {
		case frame, ok := <-ch:
			if !ok {
				return nil, ErrClosed
			}
			return frame, nil
		case <-time.After(perTry):
			continue
		}
	}
	return nil, ErrRecvTimeout
}

// Close closes this pipe end's outbound channel set. Further Send calls
// return ErrClosed; pending Recv calls on the peer unblock with
// ErrClosed once their channel drains.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.out.closeAll()
	return nil
}
