package gprov

// Segment splits payload into a START frame followed by zero or more
// CONTINUATION frames, in send order. The START frame carries up to
// StartPayloadBudget bytes; every CONTINUATION carries up to
// ContinuationPayloadBudget bytes. fcs is computed once over the whole
// payload and carried in the START frame.
func Segment(payload []byte) [][]byte {
	total := len(payload)
	fcs := FCS(payload)

	startLen := total
	if startLen > StartPayloadBudget {
		startLen = StartPayloadBudget
	}

	rest := payload[startLen:]
	segN := 0
	if len(rest) > 0 {
		segN = (len(rest) + ContinuationPayloadBudget - 1) / ContinuationPayloadBudget
	}

	frames := make([][]byte, 0, segN+1)
	frames = append(frames, EncodeStart(uint8(segN), uint16(total), fcs, payload[:startLen]))

	for i := 0; i < segN; i++ {
		from := i * ContinuationPayloadBudget
		to := from + ContinuationPayloadBudget
		if to > len(rest) {
			to = len(rest)
		}
		frames = append(frames, EncodeContinuation(uint8(i+1), rest[from:to]))
	}

	return frames
}

// Reassembler accumulates a START frame and its CONTINUATIONs into a
// single payload, keyed by seg_index, with duplicate segments
// overwritten idempotently.
type Reassembler struct {
	totalLength int
	fcs         uint8
	segN        uint8
	segments    map[uint8][]byte
	started     bool
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{segments: make(map[uint8][]byte)}
}

// Start initializes (or re-initializes) the reassembly buffer from a
// START frame.
func (r *Reassembler) Start(segN uint8, totalLength uint16, fcs uint8, content []byte) {
	r.segN = segN
	r.totalLength = int(totalLength)
	r.fcs = fcs
	r.segments = make(map[uint8][]byte)
	r.segments[0] = content
	r.started = true
}

// Continue inserts a CONTINUATION's content at segIndex, overwriting any
// prior content at the same index.
func (r *Reassembler) Continue(segIndex uint8, content []byte) error {
	if !r.started {
		return ErrFrameTooShort
	}
	if segIndex < 1 || segIndex > r.segN {
		return ErrSegmentOutOfRange
	}
	r.segments[segIndex] = content
	return nil
}

// Complete reports whether every segment from 0 to segN has been
// received.
func (r *Reassembler) Complete() bool {
	if !r.started {
		return false
	}
	for i := uint8(0); i <= r.segN; i++ {
		if _, ok := r.segments[i]; !ok {
			return false
		}
	}
	return true
}

// Payload concatenates the received segments in order and validates the
// result's length and FCS against what the START frame declared.
func (r *Reassembler) Payload() ([]byte, error) {
	if !r.Complete() {
		return nil, ErrFrameTooShort
	}

	out := make([]byte, 0, r.totalLength)
	for i := uint8(0); i <= r.segN; i++ {
		out = append(out, r.segments[i]...)
	}

	if len(out) != r.totalLength {
		return nil, ErrFCSMismatch
	}
	if FCS(out) != r.fcs {
		return nil, ErrFCSMismatch
	}
	return out, nil
}
