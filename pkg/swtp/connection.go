package swtp

import (
	"fmt"
	"sync"
	"time"
)

// Logger is the structured logging capability a Connection uses for
// protocol-level anomalies that are absorbed locally rather than returned to
// the caller (stale acks, malformed frames, a SABM received mid-session, a
// data frame received outside the Connected state). Fields mirrors the shape used throughout this
// module's ambient logging; any logger whose methods take
// map[string]interface{} by that name satisfies this interface, including
// one built on a type alias such as `type Fields = map[string]interface{}`.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// nopLogger discards everything; it is the default when no Logger is given.
type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

// Codec is the SWTLLP encapsulation step, injected into a Connection rather
// than hard-wired into it: spec.md describes SWTLLP-encapsulation as part of
// the engine's send path and SWTLLP-decapsulation as part of its receive
// path, but the tag/EtherType mapping itself belongs to pkg/swtllp, not to
// the engine. A Connection with no Codec set treats SendPayload/OnReceive
// payloads as opaque bytes, which is what every engine-level test in this
// package exercises.
type Codec interface {
	// Encapsulate turns an outbound TUN frame into an SWTP payload.
	Encapsulate(tunFrame []byte) ([]byte, error)
	// Decapsulate turns a received SWTP payload back into a TUN frame. ok is
	// false for an unrecognized tag, which the caller must silently drop.
	Decapsulate(payload []byte) (tunFrame []byte, ok bool)
}

// Stats is a point-in-time snapshot of a Connection's internal counters, for
// polling by an external metrics collector.
type Stats struct {
	State              State
	WindowLength       int
	WindowCapacity     int
	TestsSent          int
	RetransmitCount    int
	ExpectedReceiveSeq Seq
	IdleDuration       time.Duration
}

// Connection is one SWTP session with a single peer: the sliding-window
// send buffer, the receive-side sequence tracker, and the handshake/teardown
// state machine described in spec.md §3/§4. A Connection is safe for
// concurrent use; OnFrameReceived, SendPayload and OnTimerTick are all
// expected to be called from different goroutines (the socket reader, the
// application writer, and a ticker, respectively).
type Connection struct {
	host   Host
	sink   Sink
	cfg    Config
	logger Logger
	codec  Codec

	mu                 sync.Mutex
	state              State
	sabmSent           bool
	sendWindow         *sendWindow
	expectedReceiveSeq Seq
	lastReceivedTime   time.Time
	testsSent          int
	retransmitCount    int
	peerBusy           bool
}

// NewConnection constructs a Connection in the Handshaking state. The
// initiating side calls StartHandshake once it is ready to send the first
// SABM; the responding side simply waits for OnFrameReceived to observe one.
// logger may be nil, in which case protocol-level anomalies are discarded.
func NewConnection(host Host, sink Sink, cfg Config, logger Logger) *Connection {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Connection{
		host:             host,
		sink:             sink,
		cfg:              cfg.WithDefaults(),
		logger:           logger,
		state:            StateHandshaking,
		lastReceivedTime: time.Now(),
	}
}

// SetCodec installs the SWTLLP (or any other) encapsulation layer. It must
// be called before traffic starts flowing; there is no internal locking
// around swapping it mid-session.
func (c *Connection) SetCodec(codec Codec) {
	c.codec = codec
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a snapshot of the connection's internal counters as of now.
func (c *Connection) Stats(now time.Time) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		State:              c.state,
		TestsSent:          c.testsSent,
		RetransmitCount:    c.retransmitCount,
		ExpectedReceiveSeq: c.expectedReceiveSeq,
		IdleDuration:       now.Sub(c.lastReceivedTime),
	}
	if c.sendWindow != nil {
		s.WindowLength = c.sendWindow.Length()
		s.WindowCapacity = c.sendWindow.Capacity()
	}
	return s
}

// StartHandshake sends the initial SABM, advertising this side's configured
// receive-window capacity, and marks this side as the initiator so that a
// later SABM from the peer is recognized as the reply rather than a second
// first-contact (spec.md §4.6).
func (c *Connection) StartHandshake() error {
	c.mu.Lock()
	if c.state != StateHandshaking {
		c.mu.Unlock()
		return ErrClosed
	}
	c.sabmSent = true
	localCap := Seq(c.cfg.ReceiveWindowSize)
	sink := c.sink
	c.mu.Unlock()

	return sendFrame(sink, EncodeControl(ControlSABM, localCap))
}

// SendPayload enqueues an application payload for transmission. It fails
// with ErrPayloadTooLarge if the payload doesn't fit in a single frame,
// ErrNotConnected if the handshake hasn't completed, and ErrWindowFull if
// the send window is saturated or the peer has signaled RNR -- in both
// cases the payload is dropped and the caller is expected to retry later
// rather than have it silently absorbed (this package's resolution of the
// window-full question spec.md leaves open: see DESIGN.md).
func (c *Connection) SendPayload(payload []byte) error {
	if c.codec != nil {
		encapsulated, err := c.codec.Encapsulate(payload)
		if err != nil {
			return err
		}
		payload = encapsulated
	}
	if len(payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}

	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.peerBusy || c.sendWindow.Full() {
		c.mu.Unlock()
		return ErrWindowFull
	}

	frame, err := EncodeData(c.sendWindow.NextSeq(), c.expectedReceiveSeq, payload)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.sendWindow.Push(frame, time.Now())
	sink := c.sink
	c.mu.Unlock()

	return sendFrame(sink, frame)
}

// Destroy tears the connection down from this side: if it was Connected, a
// DISC is sent to let the peer release its state immediately rather than
// waiting out the idle timeout. Destroy does not invoke OnDisconnect -- the
// host already knows why it called Destroy.
func (c *Connection) Destroy() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	wasConnected := c.state == StateConnected
	nr := c.expectedReceiveSeq
	sink := c.sink
	c.state = StateClosed
	c.mu.Unlock()

	if !wasConnected {
		return nil
	}
	return sendFrame(sink, EncodeControl(ControlDISC, nr))
}

// OnFrameReceived decodes and dispatches one datagram from the peer. A
// malformed frame is logged and discarded without disturbing connection
// state; every other outcome is handled per the dispatch table in
// spec.md §4.4.
func (c *Connection) OnFrameReceived(data []byte) error {
	frame, err := Decode(data)
	if err != nil {
		c.logger.Warn("discarding malformed frame", map[string]interface{}{"error": err.Error()})
		return nil
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.lastReceivedTime = time.Now()
	c.testsSent = 0

	if frame.IsControl {
		return c.dispatchControlLocked(frame)
	}
	return c.dispatchDataLocked(frame)
}

// dispatchControlLocked handles a control frame. c.mu is held on entry; every
// path must release it before returning.
func (c *Connection) dispatchControlLocked(frame Frame) error {
	switch frame.Kind {
	case ControlSABM:
		return c.handleSABMLocked(frame)

	case ControlDISC:
		c.state = StateClosed
		host := c.host
		c.mu.Unlock()
		host.OnDisconnect(c, ReasonPeerDisc)
		return nil

	case ControlTEST:
		c.retireThroughLocked(frame.RecvSeq)
		nr := c.expectedReceiveSeq
		sink := c.sink
		c.mu.Unlock()
		return sendFrame(sink, EncodeControl(ControlRR, nr))

	case ControlRR:
		c.retireThroughLocked(frame.RecvSeq)
		c.peerBusy = false
		c.mu.Unlock()
		return nil

	case ControlRNR:
		c.retireThroughLocked(frame.RecvSeq)
		c.peerBusy = true
		c.mu.Unlock()
		return nil

	case ControlSREJ:
		return c.retransmitOneLocked(frame.RecvSeq)

	case ControlREJ:
		return c.retransmitFromLocked(frame.RecvSeq)

	default:
		// Reserved kind: decode faithfully, ignore on dispatch.
		c.mu.Unlock()
		return nil
	}
}

// dispatchDataLocked handles a data frame. c.mu is held on entry; every path
// must release it before returning.
func (c *Connection) dispatchDataLocked(frame Frame) error {
	if c.state != StateConnected {
		// A data frame arriving before the handshake has sized the send
		// window (or a stray one from a peer that still thinks a prior
		// session is up) has no window to bound a REJ against. Absorb it
		// the same as any other protocol-level anomaly.
		state := c.state
		c.mu.Unlock()
		c.logger.Warn("dropping data frame received outside Connected state", map[string]interface{}{"state": state.String()})
		return nil
	}

	c.retireThroughLocked(frame.RecvSeq)

	if frame.SendSeq == c.expectedReceiveSeq {
		c.expectedReceiveSeq = c.expectedReceiveSeq.Add(1)
		c.peerBusy = false
		nr := c.expectedReceiveSeq
		sink := c.sink
		host := c.host
		payload := append([]byte(nil), frame.Payload...)
		codec := c.codec
		c.mu.Unlock()

		if err := sendFrame(sink, EncodeControl(ControlRR, nr)); err != nil {
			return err
		}
		if codec != nil {
			tunFrame, ok := codec.Decapsulate(payload)
			if !ok {
				return nil
			}
			payload = tunFrame
		}
		host.OnReceive(c, payload)
		return nil
	}

	d := distance(c.expectedReceiveSeq, frame.SendSeq)
	if d <= c.sendWindow.Capacity() {
		nr := c.expectedReceiveSeq
		sink := c.sink
		c.mu.Unlock()
		return sendFrame(sink, EncodeControl(ControlREJ, nr))
	}

	// Outside what a REJ could plausibly recover: a stale retransmission of
	// something already acknowledged. Silently discard.
	c.mu.Unlock()
	return nil
}

// handleSABMLocked processes a SABM, whether this is the first one seen (we
// are the responder and must reply with our own) or the reply to one we
// already sent (we are the initiator). c.mu is held on entry.
func (c *Connection) handleSABMLocked(frame Frame) error {
	if c.state == StateConnected {
		c.mu.Unlock()
		c.logger.Warn("SABM received on an already-connected session; ignoring", nil)
		return nil
	}

	peerCapacity := int(frame.Capacity())
	if peerCapacity < 1 {
		peerCapacity = 1
	}
	if c.cfg.MaxSendWindowSize > 0 && peerCapacity > c.cfg.MaxSendWindowSize {
		peerCapacity = c.cfg.MaxSendWindowSize
	}
	c.sendWindow = newSendWindow(peerCapacity)
	c.state = StateConnected

	needsReply := !c.sabmSent
	c.sabmSent = true
	localCap := Seq(c.cfg.ReceiveWindowSize)
	sink := c.sink
	c.mu.Unlock()

	if !needsReply {
		return nil
	}
	return sendFrame(sink, EncodeControl(ControlSABM, localCap))
}

// retireThroughLocked retires acknowledged frames from the send window,
// logging and otherwise ignoring a stale/garbled N(R). c.mu must be held.
func (c *Connection) retireThroughLocked(nr Seq) {
	if c.sendWindow == nil {
		return
	}
	if _, ok := c.sendWindow.RetireThrough(nr); !ok {
		c.logger.Warn("discarding stale acknowledgement", map[string]interface{}{"nr": nr})
	}
}

// retransmitOneLocked resends exactly the frame named by an SREJ, piggy-
// backing the current expectedReceiveSeq. c.mu is held on entry and always
// released before returning.
func (c *Connection) retransmitOneLocked(seq Seq) error {
	buf, ok := c.sendWindow.Frame(seq)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	RestampRecvSeq(buf, c.expectedReceiveSeq)
	c.sendWindow.Restamp(seq, buf, time.Now())
	c.retransmitCount++
	sink := c.sink
	c.mu.Unlock()
	return sendFrame(sink, buf)
}

// retransmitFromLocked resends every frame from seq through the end of the
// send window, in order, for a go-back-N REJ. c.mu is held on entry and
// always released before returning.
func (c *Connection) retransmitFromLocked(seq Seq) error {
	nr := c.expectedReceiveSeq
	now := time.Now()
	var frames [][]byte
	for s := seq; inWindow(s, c.sendWindow.startSeq, c.sendWindow.length); s = s.Add(1) {
		buf, ok := c.sendWindow.Frame(s)
		if !ok {
			break
		}
		RestampRecvSeq(buf, nr)
		c.sendWindow.Restamp(s, buf, now)
		c.retransmitCount++
		frames = append(frames, buf)
	}
	sink := c.sink
	c.mu.Unlock()

	for _, f := range frames {
		if err := sendFrame(sink, f); err != nil {
			return err
		}
	}
	return nil
}

// OnTimerTick drives retransmission, keep-alive probing and idle-timeout
// teardown. The caller is expected to invoke it roughly once per
// cfg.Timeout; spec.md §4.5 describes the underlying state machine.
func (c *Connection) OnTimerTick(now time.Time) error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil
	}

	idle := now.Sub(c.lastReceivedTime)
	sendTest := false
	closeNow := false
	if idle >= c.cfg.PingTimeout {
		if idle-c.cfg.PingTimeout >= time.Duration(c.cfg.MaxRetry)*c.cfg.Timeout {
			closeNow = true
		} else if idle-time.Duration(c.testsSent)*c.cfg.Timeout >= c.cfg.PingTimeout {
			sendTest = true
		}
	}

	if closeNow {
		c.state = StateClosed
		host := c.host
		c.mu.Unlock()
		host.OnDisconnect(c, ReasonTimeout)
		return nil
	}

	var retransmits [][]byte
	if c.sendWindow != nil {
		for _, slot := range c.sendWindow.InOrder() {
			if now.Sub(slot.lastSendAttempt) < c.cfg.Timeout {
				break
			}
			buf := slot.frame
			RestampRecvSeq(buf, c.expectedReceiveSeq)
			c.sendWindow.Restamp(slot.seq, buf, now)
			c.retransmitCount++
			retransmits = append(retransmits, buf)
		}
	}

	var testFrame []byte
	if sendTest {
		testFrame = EncodeControl(ControlTEST, c.expectedReceiveSeq)
		c.testsSent++
	}
	sink := c.sink
	c.mu.Unlock()

	for _, f := range retransmits {
		if err := sendFrame(sink, f); err != nil {
			return err
		}
	}
	if testFrame != nil {
		return sendFrame(sink, testFrame)
	}
	return nil
}

// sendFrame wraps a Sink.Send failure so callers can distinguish a socket
// error from the protocol-level nils this package otherwise returns.
func sendFrame(sink Sink, buf []byte) error {
	if err := sink.Send(buf); err != nil {
		return fmt.Errorf("swtp: socket send failed: %w", err)
	}
	return nil
}
