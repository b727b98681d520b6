package swtp

// State is the connection's place in the SWTP lifecycle (spec.md §3/§4.6).
type State int

const (
	StateHandshaking State = iota
	StateConnected
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "Handshaking"
	case StateConnected:
		return "Connected"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// DisconnectReason names why a connection entered the Closed state via the
// on-disconnect callback. Connection.Destroy (host-initiated teardown) does
// not fire this callback: the host already knows why it tore the
// connection down.
type DisconnectReason int

const (
	// ReasonPeerDisc means the peer sent a DISC frame.
	ReasonPeerDisc DisconnectReason = iota
	// ReasonTimeout means the connection exceeded PingTimeout + MaxRetry*Timeout
	// of silence from the peer.
	ReasonTimeout
)

// String returns a human-readable disconnect reason.
func (r DisconnectReason) String() string {
	switch r {
	case ReasonPeerDisc:
		return "PeerDisc"
	case ReasonTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Host is the capability a Connection is given at construction to deliver
// received payloads and announce teardown. Both methods are invoked without
// the connection's mutex held; payload is a buffer owned by the caller and
// only valid for the duration of the call.
type Host interface {
	OnReceive(conn *Connection, payload []byte)
	OnDisconnect(conn *Connection, reason DisconnectReason)
}

// Sink is the borrowed, opaque socket handle a Connection uses to emit
// frames. Implementations may block momentarily on the underlying write;
// Connection never calls Send while holding its mutex.
type Sink interface {
	Send(frame []byte) error
}
