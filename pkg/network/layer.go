package network

import (
	"context"
	"fmt"

	"github.com/pion/logging"

	"github.com/meshwire/provisioner/pkg/bearer"
	"github.com/meshwire/provisioner/pkg/netstore"
)

// Received is one reassembled transport PDU delivered by the network
// layer's receive loop, paired with the addressing context it arrived
// under.
type Received struct {
	TransportPDU []byte
	Soft         SoftContext
	Hard         HardContext
}

// Layer is the network layer: it builds and sends outbound PDUs against
// a NetworkRecord store, and runs a single cooperative receive loop that
// decodes inbound PDUs and publishes them on TransportPDUs.
type Layer struct {
	store  *netstore.Store
	bearer bearer.Bearer
	log    logging.LeveledLogger

	TransportPDUs chan Received
}

// NewLayer builds a network Layer. loggerFactory may be nil to disable
// logging, following the teacher's transport constructors.
func NewLayer(store *netstore.Store, brr bearer.Bearer, loggerFactory logging.LoggerFactory) *Layer {
	var log logging.LeveledLogger
	if loggerFactory != nil {
		log = loggerFactory.NewLogger("network")
	}
	return &Layer{
		store:         store,
		bearer:        brr,
		log:           log,
		TransportPDUs: make(chan Received, 64),
	}
}

// Send allocates the next sequence number for soft.NetworkName, builds
// the outbound PDU, and enqueues it on the bearer's message channel.
func (l *Layer) Send(transportPDU []byte, soft SoftContext, isCtrl bool, ttl uint8) error {
	record, err := l.store.Load(soft.NetworkName)
	if err != nil {
		return fmt.Errorf("network: send: %w", err)
	}

	seq, err := l.store.AllocateSeq(soft.NetworkName)
	if err != nil {
		return fmt.Errorf("network: allocate seq: %w", err)
	}

	hard := HardContext{IsCtrlMsg: isCtrl, TTL: ttl, Seq: seq}
	pdu, err := BuildOutboundPDU(record, soft, hard, transportPDU)
	if err != nil {
		return fmt.Errorf("network: build pdu: %w", err)
	}

	if err := l.bearer.Send(nil, bearer.ChannelMessage, pdu); err != nil {
		return fmt.Errorf("network: send pdu: %w", err)
	}
	return nil
}

// ProcessInbound looks up the network record by nid and decodes one
// inbound PDU, without touching the bearer or the receive loop. It is
// exported so callers can drive the decode path directly in tests.
func (l *Layer) ProcessInbound(pdu []byte) (Received, error) {
	if len(pdu) < 1 {
		return Received{}, ErrPDUTooShort
	}
	nid := pdu[0] & 0x7F

	idx, err := l.store.NidIndex()
	if err != nil {
		return Received{}, fmt.Errorf("network: build nid index: %w", err)
	}

	record, ok := idx[nid]
	if !ok {
		return Received{}, ErrNidUnknown
	}

	hard, soft, transportPDU, err := ParseInboundPDU(record, pdu)
	if err != nil {
		return Received{}, err
	}

	return Received{TransportPDU: transportPDU, Soft: soft, Hard: hard}, nil
}

// RecvLoop pulls frames from the bearer's message channel until ctx is
// cancelled or the bearer's Recv returns an error, decoding each one and
// publishing successes on TransportPDUs. Decode failures (unknown nid,
// MIC mismatch, malformed PDU) are logged at debug level and the frame
// is dropped; the loop never stops on a single bad frame. Cancelling ctx
// does not interrupt a Recv that is already blocked.
func (l *Layer) RecvLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := l.bearer.Recv(bearer.ChannelMessage, 1, 0)
		if err != nil {
			if l.log != nil {
				l.log.Debugf("network: recv error: %v", err)
			}
			return
		}

		received, err := l.ProcessInbound(frame)
		if err != nil {
			if l.log != nil {
				l.log.Debugf("network: dropping frame: %v", err)
			}
			continue
		}

		select {
		case l.TransportPDUs <- received:
		case <-ctx.Done():
			return
		}
	}
}
