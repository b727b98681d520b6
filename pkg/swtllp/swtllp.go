// Package swtllp implements the SWTLLP adapter: the thin sub-protocol that
// multiplexes IPv4 and IPv6 onto SWTP frames so a TUN device can use the
// tunnel as its datalink.
package swtllp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// EtherType values carried in the 4-byte TUN prefix, same meaning as
// pkg/layer2's Ethernet constants.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeIPv6 uint16 = 0x86DD
)

// Protocol tags occupying the single byte prepended to an SWTP payload.
const (
	TagIPv4 byte = 0x01
	TagIPv6 byte = 0x02
)

// TUNPrefixSize is the 4-byte header every frame exchanged with the TUN
// device carries: 2 reserved bytes (zero on egress), then a 2-byte
// EtherType.
const TUNPrefixSize = 4

// ErrUnknownProtocol is returned by Encapsulate when the TUN frame's
// EtherType is neither IPv4 nor IPv6.
var ErrUnknownProtocol = errors.New("swtllp: unknown protocol")

// ErrFrameTooShort is returned by Encapsulate when the input is shorter than
// a TUN prefix.
var ErrFrameTooShort = errors.New("swtllp: frame shorter than TUN prefix")

// Adapter implements swtp.Codec, mapping between TUN frames (4-byte prefix +
// L3 packet) and SWTP payloads (1-byte tag + L3 packet).
type Adapter struct{}

// New returns a ready-to-use Adapter. It holds no state: the mapping is a
// pure function of the EtherType/tag byte.
func New() *Adapter {
	return &Adapter{}
}

// Encapsulate strips a TUN frame's 4-byte prefix and replaces it with the
// 1-byte SWTLLP tag matching its EtherType.
func (a *Adapter) Encapsulate(tunFrame []byte) ([]byte, error) {
	if len(tunFrame) < TUNPrefixSize {
		return nil, ErrFrameTooShort
	}

	etherType := binary.BigEndian.Uint16(tunFrame[2:4])
	var tag byte
	switch etherType {
	case EtherTypeIPv4:
		tag = TagIPv4
	case EtherTypeIPv6:
		tag = TagIPv6
	default:
		return nil, fmt.Errorf("%w: ethertype 0x%04x", ErrUnknownProtocol, etherType)
	}

	out := make([]byte, 1+len(tunFrame)-TUNPrefixSize)
	out[0] = tag
	copy(out[1:], tunFrame[TUNPrefixSize:])
	return out, nil
}

// Decapsulate reads an SWTP payload's tag byte and synthesizes the matching
// TUN prefix. ok is false for an unrecognized tag; the caller must drop the
// payload silently in that case rather than surface an error.
func (a *Adapter) Decapsulate(payload []byte) (tunFrame []byte, ok bool) {
	if len(payload) < 1 {
		return nil, false
	}

	var etherType uint16
	switch payload[0] {
	case TagIPv4:
		etherType = EtherTypeIPv4
	case TagIPv6:
		etherType = EtherTypeIPv6
	default:
		return nil, false
	}

	out := make([]byte, TUNPrefixSize+len(payload)-1)
	binary.BigEndian.PutUint16(out[2:4], etherType)
	copy(out[TUNPrefixSize:], payload[1:])
	return out, true
}
