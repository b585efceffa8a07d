package gprov

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/logging"

	"github.com/meshwire/provisioner/pkg/bearer"
	"github.com/meshwire/provisioner/pkg/crypto"
)

// Layer is the generic provisioning layer: it segments and sends
// transaction payloads over a Bearer, runs a per-send ack watcher task,
// reassembles inbound transactions, and drives bearer-control link
// open/close.
type Layer struct {
	bearer bearer.Bearer
	cfg    Config
	log    logging.LeveledLogger
}

// NewLayer builds a generic provisioning Layer. A zero Config falls back
// to its documented defaults; loggerFactory may be nil to disable
// logging.
func NewLayer(b bearer.Bearer, cfg Config, loggerFactory logging.LoggerFactory) *Layer {
	var log logging.LeveledLogger
	if loggerFactory != nil {
		log = loggerFactory.NewLogger("gprov")
	}
	return &Layer{bearer: b, cfg: cfg.withDefaults(), log: log}
}

// Send segments payload and transmits it, START first and then
// CONTINUATIONs in ascending seg_index order, and blocks until a single
// ACK arrives or the transaction times out. The ack watcher runs as an
// independent task so that sending the remaining segments is never
// blocked on the wait for an ACK.
func (l *Layer) Send(ctx context.Context, payload []byte) error {
	done := make(chan error, 1)
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.ackWatcher(watchCtx, done)

	frames := Segment(payload)
	for _, f := range frames {
		if err := l.bearer.Send(nil, bearer.ChannelProv, f); err != nil {
			return fmt.Errorf("gprov: send segment: %w", err)
		}
	}

	select {
	case err := <-done:
		return err
	case <-time.After(l.cfg.AckWait):
		return ErrAckTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ackWatcher polls the bearer's 'prov' channel until an ACK arrives or
// AckTimeout elapses, reporting the outcome on done. It is a short-lived
// task created per transaction and is cancelled as soon as Send's
// select statement picks a result, so an early ACK never leaks a
// dangling goroutine beyond that point.
func (l *Layer) ackWatcher(ctx context.Context, done chan<- error) {
	deadline := time.Now().Add(l.cfg.AckTimeout)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			select {
			case done <- ErrAckTimeout:
			default:
			}
			return
		}

		perTry := l.cfg.PollInterval
		if remaining < perTry {
			perTry = remaining
		}

		frame, err := l.bearer.Recv(bearer.ChannelProv, 1, perTry)
		if err == bearer.ErrClosed {
			select {
			case done <- err:
			default:
			}
			return
		}
		if err != nil {
			continue
		}

		f, err := DecodeFrame(frame)
		if err != nil {
			if l.log != nil {
				l.log.Debugf("gprov: dropping malformed frame while waiting for ack: %v", err)
			}
			continue
		}
		if f.Type != TypeAcknowledgment {
			continue
		}
		if err := DecodeAck(f); err != nil {
			if l.log != nil {
				l.log.Debugf("gprov: dropping malformed ack: %v", err)
			}
			continue
		}

		select {
		case done <- nil:
		default:
		}
		return
	}
}

// Recv pulls frames from the bearer's 'prov' channel, reassembling one
// complete transaction. On success it emits an ACK and returns the
// assembled payload; on FCS failure it drops the reassembly (the sender
// will time out) and keeps listening for a fresh START.
func (l *Layer) Recv(ctx context.Context) ([]byte, error) {
	r := NewReassembler()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		frame, err := l.bearer.Recv(bearer.ChannelProv, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("gprov: recv: %w", err)
		}

		f, err := DecodeFrame(frame)
		if err != nil {
			if l.log != nil {
				l.log.Debugf("gprov: dropping malformed frame: %v", err)
			}
			continue
		}

		switch f.Type {
		case TypeStart:
			segN, totalLength, fcs, content, err := DecodeStart(f)
			if err != nil {
				if l.log != nil {
					l.log.Debugf("gprov: dropping malformed start: %v", err)
				}
				continue
			}
			r = NewReassembler()
			r.Start(segN, totalLength, fcs, content)
		case TypeContinuation:
			idx, content, err := DecodeContinuation(f)
			if err != nil {
				continue
			}
			if err := r.Continue(idx, content); err != nil {
				if l.log != nil {
					l.log.Debugf("gprov: dropping out-of-range continuation: %v", err)
				}
				continue
			}
		default:
			continue
		}

		if !r.Complete() {
			continue
		}

		payload, err := r.Payload()
		if err != nil {
			if l.log != nil {
				l.log.Debugf("gprov: fcs mismatch, dropping reassembly: %v", err)
			}
			r = NewReassembler()
			continue
		}

		if err := l.bearer.Send(nil, bearer.ChannelProv, EncodeAck()); err != nil {
			return nil, fmt.Errorf("gprov: send ack: %w", err)
		}
		return payload, nil
	}
}

// Open emits LINK_OPEN for deviceUUID and waits once for LINK_ACK,
// establishing a Link with a freshly generated link id. Best-effort: a
// single attempt, no retry, per the link-control contract.
func (l *Layer) Open(deviceUUID [16]byte, timeout time.Duration) (*Link, error) {
	var linkID [4]byte
	randBytes, err := crypto.Random(4)
	if err != nil {
		return nil, fmt.Errorf("gprov: generate link id: %w", err)
	}
	copy(linkID[:], randBytes)

	if err := l.bearer.Send(nil, bearer.ChannelProv, EncodeLinkOpen(deviceUUID)); err != nil {
		return nil, fmt.Errorf("gprov: send link open: %w", err)
	}

	frame, err := l.bearer.Recv(bearer.ChannelProv, 1, timeout)
	if err != nil {
		return nil, fmt.Errorf("gprov: wait for link ack: %w", err)
	}

	f, err := DecodeFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("gprov: decode link ack: %w", err)
	}
	op, _, err := DecodeBearerControl(f)
	if err != nil {
		return nil, fmt.Errorf("gprov: decode link ack: %w", err)
	}
	if op != OpLinkAck {
		return nil, ErrUnknownBearerOp
	}

	return &Link{DeviceUUID: deviceUUID, LinkID: linkID}, nil
}

// Close emits LINK_CLOSE with reason, best-effort with no retry and no
// wait for acknowledgment.
func (l *Layer) Close(link *Link, reason LinkCloseReason) error {
	link.CloseReason = reason
	if err := l.bearer.Send(nil, bearer.ChannelProv, EncodeLinkClose(reason)); err != nil {
		return fmt.Errorf("gprov: send link close: %w", err)
	}
	return nil
}
