// Package tundev wraps a TUN device as the opaque bidirectional byte pipe
// the tunnel's uplink loop reads from and writes to: whole frames carrying
// the 4-byte TUN prefix (2 reserved bytes, a 2-byte EtherType), ready for
// pkg/swtllp to translate to and from SWTP payloads.
package tundev

import (
	"fmt"
	"sync"

	"github.com/songgao/water"
)

// frameBufferPool reuses read buffers across packets to keep the uplink
// loop's steady-state allocation rate flat.
var frameBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 1504) // 1500 MTU + 4-byte TUN prefix
		return &b
	},
}

// Interface is a live TUN device.
type Interface struct {
	iface *water.Interface
	name  string
}

// Open creates (or attaches to, if name already exists) a TUN interface.
// An empty name lets the kernel assign one.
func Open(name string) (*Interface, error) {
	cfg := water.Config{DeviceType: water.TUN}
	if name != "" {
		cfg.Name = name
	}

	iface, err := water.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("tundev: create TUN device: %w", err)
	}

	return &Interface{iface: iface, name: iface.Name()}, nil
}

// Name returns the kernel-assigned or requested interface name.
func (t *Interface) Name() string {
	return t.name
}

// ReadFrame reads one TUN frame (prefix + L3 packet). The returned slice is
// owned by the caller.
func (t *Interface) ReadFrame() ([]byte, error) {
	bufPtr := frameBufferPool.Get().(*[]byte)
	buf := *bufPtr
	defer frameBufferPool.Put(bufPtr)

	n, err := t.iface.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("tundev: read: %w", err)
	}

	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

// WriteFrame writes one TUN frame (prefix + L3 packet) to the device.
func (t *Interface) WriteFrame(frame []byte) error {
	if _, err := t.iface.Write(frame); err != nil {
		return fmt.Errorf("tundev: write: %w", err)
	}
	return nil
}

// Close releases the underlying device.
func (t *Interface) Close() error {
	return t.iface.Close()
}
