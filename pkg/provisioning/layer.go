// Package provisioning implements the four-phase state machine that
// admits a new device into a mesh network: invitation, public-key
// exchange, authentication, and data distribution. It drives a
// *gprov.Layer for the transaction-level exchange and a *netstore.Store
// for the credentials handed to the device in the final phase.
package provisioning

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pion/logging"

	"github.com/meshwire/provisioner/pkg/bearer"
	"github.com/meshwire/provisioner/pkg/bitbuf"
	"github.com/meshwire/provisioner/pkg/crypto"
	"github.com/meshwire/provisioner/pkg/gprov"
	"github.com/meshwire/provisioner/pkg/netstore"
)

var authMethodNoOOB = []byte{0x00, 0x00, 0x00, 0x00, 0x00}

// Layer runs the provisioning state machine for one device at a time.
// It is not safe to call ProvisioningDevice concurrently from multiple
// goroutines on the same Layer, matching the core's "never overlaps
// phases" concurrency contract.
type Layer struct {
	bearer bearer.Bearer
	gprov  *gprov.Layer
	store  *netstore.Store
	cfg    Config
	log    logging.LeveledLogger
}

// NewLayer builds a provisioning Layer over b, using store to resolve
// the target NetworkRecord during data distribution. A zero Config
// falls back to its documented defaults; loggerFactory may be nil to
// disable logging.
func NewLayer(b bearer.Bearer, store *netstore.Store, cfg Config, loggerFactory logging.LoggerFactory) *Layer {
	var log logging.LeveledLogger
	if loggerFactory != nil {
		log = loggerFactory.NewLogger("provisioning")
	}
	return &Layer{
		bearer: b,
		gprov:  gprov.NewLayer(b, gprov.Default(), loggerFactory),
		store:  store,
		cfg:    cfg.withDefaults(),
		log:    log,
	}
}

// Scan pulls beacon frames until one carries a parsable device UUID or
// timeout elapses. A non-positive timeout blocks indefinitely.
func (l *Layer) Scan(timeout time.Duration) ([16]byte, error) {
	var zero [16]byte
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		perTry := l.cfg.ScanPollInterval
		if timeout > 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return zero, ErrScanTimeout
			}
			if remaining < perTry {
				perTry = remaining
			}
		}

		frame, err := l.bearer.Recv(bearer.ChannelBeacon, 1, perTry)
		if err != nil {
			if err == bearer.ErrClosed {
				return zero, fmt.Errorf("provisioning: scan: %w", err)
			}
			continue
		}

		uuid, ok := parseBeaconUUID(frame)
		if !ok {
			if l.log != nil {
				l.log.Debugf("provisioning: dropping unparsable beacon frame")
			}
			continue
		}
		return uuid, nil
	}
}

// parseBeaconUUID extracts the second whitespace-separated token from a
// beacon frame as a 16-byte device UUID, accepting either raw bytes or
// hex-encoded text depending on the driver.
func parseBeaconUUID(frame []byte) ([16]byte, bool) {
	var out [16]byte
	fields := bytes.Fields(frame)
	if len(fields) < 2 {
		return out, false
	}
	tok := fields[1]

	if len(tok) == 16 {
		copy(out[:], tok)
		return out, true
	}
	if len(tok) == 32 {
		decoded, err := hex.DecodeString(string(tok))
		if err == nil && len(decoded) == 16 {
			copy(out[:], decoded)
			return out, true
		}
	}
	return out, false
}

// ProvisioningDevice opens a link to deviceUUID, runs the four
// provisioning phases, and closes the link with the reason matching
// whatever outcome the phases produced. It always emits LINK_CLOSE,
// including on a failed Open.
func (l *Layer) ProvisioningDevice(ctx context.Context, deviceUUID [16]byte, netName string) error {
	link, err := l.gprov.Open(deviceUUID, l.cfg.LinkOpenTimeout)
	if err != nil {
		failed := &gprov.Link{DeviceUUID: deviceUUID}
		if closeErr := l.gprov.Close(failed, gprov.ReasonTimeout); closeErr != nil && l.log != nil {
			l.log.Warnf("provisioning: link close: %v", closeErr)
		}
		return &ProvisioningTimeout{Err: err}
	}

	st := newSessionState()
	runErr := l.runPhases(ctx, st, netName)

	reason := gprov.ReasonSuccess
	switch e := runErr.(type) {
	case nil:
	case *ProvisioningFail:
		reason = e.Reason
	case *ProvisioningTimeout:
		reason = gprov.ReasonTimeout
	default:
		reason = gprov.ReasonFail
	}

	if closeErr := l.gprov.Close(link, reason); closeErr != nil && l.log != nil {
		l.log.Warnf("provisioning: link close: %v", closeErr)
	}
	return runErr
}

func (l *Layer) runPhases(ctx context.Context, st *sessionState, netName string) error {
	if err := l.invitationPhase(ctx, st); err != nil {
		return err
	}
	if err := l.exchangingPubKeysPhase(ctx, st); err != nil {
		return err
	}
	if err := l.authenticationPhase(ctx, st); err != nil {
		return err
	}
	if err := l.sendDataPhase(ctx, st, netName); err != nil {
		return err
	}
	return nil
}

func (l *Layer) invitationPhase(ctx context.Context, st *sessionState) error {
	st.invite = []byte{l.cfg.AttentionDuration}

	if err := l.send(ctx, OpInvite, st.invite); err != nil {
		return err
	}

	body, err := l.recvOpcode(ctx, OpCapabilities)
	if err != nil {
		return err
	}
	st.capabilitiesRaw = body

	caps, err := ParseCapabilities(body)
	if err != nil {
		return newFail(err)
	}
	st.capabilities = caps
	return nil
}

func (l *Layer) exchangingPubKeysPhase(ctx context.Context, st *sessionState) error {
	// Algorithm, public key type, auth method, auth action, and auth
	// size are all fixed to No-OOB for this specification.
	st.start = authMethodNoOOB
	if err := l.send(ctx, OpStart, st.start); err != nil {
		return err
	}

	keyPair, err := crypto.GenerateP256KeyPair()
	if err != nil {
		return newFail(fmt.Errorf("provisioning: generate key pair: %w", err))
	}
	st.keyPair = keyPair
	st.pubX, st.pubY = keyPair.PublicXY()

	pkBody := make([]byte, 0, 64)
	pkBody = append(pkBody, st.pubX...)
	pkBody = append(pkBody, st.pubY...)
	if err := l.send(ctx, OpPublicKey, pkBody); err != nil {
		return err
	}

	body, err := l.recvOpcode(ctx, OpPublicKey)
	if err != nil {
		return err
	}
	if len(body) != 64 {
		return newFail(ErrPublicKeyMalformed)
	}
	st.devX, st.devY = body[:32], body[32:64]

	ecdhX, err := st.keyPair.ECDHSharedX(st.devX, st.devY)
	if err != nil {
		return newFail(err)
	}
	st.ecdhX = ecdhX
	return nil
}

func (l *Layer) authenticationPhase(ctx context.Context, st *sessionState) error {
	transcript := make([]byte, 0, len(st.invite)+len(st.capabilitiesRaw)+len(st.start)+128)
	transcript = append(transcript, st.invite...)
	transcript = append(transcript, st.capabilitiesRaw...)
	transcript = append(transcript, st.start...)
	transcript = append(transcript, st.pubX...)
	transcript = append(transcript, st.pubY...)
	transcript = append(transcript, st.devX...)
	transcript = append(transcript, st.devY...)

	salt, err := crypto.S1(transcript)
	if err != nil {
		return newFail(err)
	}
	st.confirmationSalt = salt

	key, err := crypto.K1(st.ecdhX, salt, []byte("prck"))
	if err != nil {
		return newFail(err)
	}
	st.confirmationKey = key

	randomProv, err := crypto.Random(16)
	if err != nil {
		return newFail(err)
	}
	st.randomProv = randomProv

	confirmProv, err := crypto.AESCMAC(key, append(append([]byte{}, randomProv...), st.authValue...))
	if err != nil {
		return newFail(err)
	}
	if err := l.send(ctx, OpConfirmation, confirmProv); err != nil {
		return err
	}

	confirmDevice, err := l.recvOpcode(ctx, OpConfirmation)
	if err != nil {
		return err
	}
	if len(confirmDevice) != 16 {
		return newFail(ErrConfirmationMismatch)
	}

	if err := l.send(ctx, OpRandom, randomProv); err != nil {
		return err
	}

	randomDevice, err := l.recvOpcode(ctx, OpRandom)
	if err != nil {
		return err
	}
	if len(randomDevice) != 16 {
		return newFail(ErrConfirmationMismatch)
	}
	st.randomDevice = randomDevice

	expected, err := crypto.AESCMAC(key, append(append([]byte{}, randomDevice...), st.authValue...))
	if err != nil {
		return newFail(err)
	}
	if !bytes.Equal(confirmDevice, expected) {
		return newFail(ErrConfirmationMismatch)
	}
	return nil
}

func (l *Layer) sendDataPhase(ctx context.Context, st *sessionState, netName string) error {
	salt, err := crypto.S1(concatAll(st.confirmationSalt, st.randomProv, st.randomDevice))
	if err != nil {
		return newFail(err)
	}
	st.provisioningSalt = salt

	sessionKey, err := crypto.K1(st.ecdhX, salt, []byte("prsk"))
	if err != nil {
		return newFail(err)
	}
	st.sessionKey = sessionKey

	nonceMaterial, err := crypto.K1(st.ecdhX, salt, []byte("prsn"))
	if err != nil {
		return newFail(err)
	}
	// The 16-byte CMAC output is truncated to the low 13 bytes to form
	// a CCM nonce.
	st.sessionNonce = nonceMaterial[len(nonceMaterial)-13:]

	record, err := l.store.Load(netName)
	if err != nil {
		return newFail(err)
	}
	unicast, err := l.store.AllocateUnicast(netName)
	if err != nil {
		return newFail(err)
	}

	data := bitbuf.New()
	data.PushBytes(record.NetKey)
	data.PushU16(record.NetKeyIndex)
	data.PushU8(0x00)
	data.PushU32(record.IVIndex)
	data.PushU16(unicast)

	sealed, err := crypto.SealCCM(st.sessionKey, st.sessionNonce, data.Bytes(), 8)
	if err != nil {
		return newFail(err)
	}

	if err := l.send(ctx, OpData, sealed); err != nil {
		return err
	}

	payload, err := l.recvWithTimeout(ctx, l.cfg.PhaseTimeout)
	if err != nil {
		return err
	}
	if len(payload) < 1 {
		return newFail(ErrOpcodeMismatch)
	}
	switch payload[0] {
	case OpComplete:
		return nil
	case OpFailed:
		return newFail(ErrDeviceReportedFailure)
	default:
		return newFail(ErrOpcodeMismatch)
	}
}

func concatAll(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// send transmits opcode||body as a single GProv transaction, mapping an
// ack timeout onto ProvisioningTimeout and anything else onto
// ProvisioningFail.
func (l *Layer) send(ctx context.Context, opcode byte, body []byte) error {
	msg := make([]byte, 0, 1+len(body))
	msg = append(msg, opcode)
	msg = append(msg, body...)

	if err := l.gprov.Send(ctx, msg); err != nil {
		if err == gprov.ErrAckTimeout || errors.Is(err, context.DeadlineExceeded) {
			return &ProvisioningTimeout{Err: err}
		}
		return newFail(err)
	}
	return nil
}

// recvOpcode waits for a transaction and requires it to carry wantOpcode,
// special-casing PROVISIONING_FAILED the way every phase's receive does.
func (l *Layer) recvOpcode(ctx context.Context, wantOpcode byte) ([]byte, error) {
	payload, err := l.recvWithTimeout(ctx, l.cfg.PhaseTimeout)
	if err != nil {
		return nil, err
	}
	if len(payload) < 1 {
		return nil, newFail(ErrOpcodeMismatch)
	}
	if payload[0] == OpFailed {
		return nil, newFail(ErrDeviceReportedFailure)
	}
	if payload[0] != wantOpcode {
		return nil, newFail(ErrOpcodeMismatch)
	}
	return payload[1:], nil
}

// recvWithTimeout bounds a gprov transaction receive to timeout,
// surfacing expiry as ProvisioningTimeout. The underlying Recv call can
// outlive the timeout (it is only interrupted between bearer polls), so
// the goroutine it runs in is abandoned on timeout rather than joined.
func (l *Layer) recvWithTimeout(ctx context.Context, timeout time.Duration) ([]byte, error) {
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		payload []byte
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		payload, err := l.gprov.Recv(ctx2)
		ch <- result{payload, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) || errors.Is(r.err, context.Canceled) {
				return nil, &ProvisioningTimeout{Err: r.err}
			}
			return nil, newFail(r.err)
		}
		return r.payload, nil
	case <-ctx2.Done():
		return nil, &ProvisioningTimeout{Err: ctx2.Err()}
	}
}
