package swtp

import "errors"

// Error taxonomy for the SWTP engine. Protocol-level anomalies (stale acks,
// malformed frames) are absorbed locally and only logged; these sentinels are
// for conditions the caller must react to, including a saturated send window.
var (
	// ErrPayloadTooLarge is returned by SendPayload when the payload (after
	// SWTLLP encapsulation) would not fit in a single frame.
	ErrPayloadTooLarge = errors.New("swtp: payload too large")

	// ErrNotConnected is returned by SendPayload when the connection is not
	// in the Connected state.
	ErrNotConnected = errors.New("swtp: not connected")

	// ErrWindowFull is returned by SendPayload when the send window is
	// saturated or the peer has signaled RNR. The payload is dropped; the
	// caller decides whether to retry.
	ErrWindowFull = errors.New("swtp: send window full")

	// ErrMalformedFrame is returned internally when a frame fails to decode;
	// OnFrameReceived logs it and returns nil, never surfacing it to the
	// caller, since a malformed datagram from the peer must not disturb
	// connection state.
	ErrMalformedFrame = errors.New("swtp: malformed frame")

	// ErrClosed is returned by StartHandshake when the connection is no
	// longer in the Handshaking state. Other operations on a Closed
	// connection do not return it: SendPayload returns ErrNotConnected, and
	// OnFrameReceived, OnTimerTick and Destroy return nil.
	ErrClosed = errors.New("swtp: connection closed")
)
