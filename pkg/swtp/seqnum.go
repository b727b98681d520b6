package swtp

// Seq is an SWTP sequence number. Only the low 15 bits are ever meaningful;
// arithmetic wraps modulo 2^15 the way spec.md describes it. Every
// comparison in this package is routed through distance/inWindow rather than
// Go's native <, > operators, since naive comparisons on a wrapping counter
// are the classic source of off-by-one bugs in this kind of protocol.
type Seq uint16

const (
	seqBits    = 15
	seqModulo  = 1 << seqBits // 32768
	seqMask    = seqModulo - 1
	maxWindow  = seqModulo / 2 // largest window/backlog this arithmetic can distinguish
)

// normalize masks a raw value down to the 15-bit sequence space.
func normalize(v int) Seq {
	return Seq(((v % seqModulo) + seqModulo) % seqModulo)
}

// Add returns s advanced by delta, wrapping modulo 2^15. delta may be
// negative.
func (s Seq) Add(delta int) Seq {
	return normalize(int(s) + delta)
}

// distance returns (to - from) mod 2^15: how many steps forward from must
// advance to reach to.
func distance(from, to Seq) int {
	return int(normalize(int(to) - int(from)))
}

// inWindow reports whether seq falls within the half-open range
// [start, start+length) of the 15-bit sequence space. length must be in
// [0, seqModulo]; a zero-length window contains nothing.
func inWindow(seq, start Seq, length int) bool {
	if length <= 0 {
		return false
	}
	return distance(start, seq) < length
}
