// Package header provides bounds-checked views over the fixed wire layouts of
// Ethernet, ARP, IPv4, UDP and TCP headers. A view never copies: reads and
// writes go straight to the underlying buffer in network byte order.
package header

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/losenet/internal/core"
)

// View is a window onto a byte buffer addressed by byte offsets.
// Every multi-byte field is big-endian on the wire.
type View []byte

// NewView returns a view over buf after checking it holds at least minLen bytes.
func NewView(buf []byte, minLen int) (View, error) {
	if len(buf) < minLen {
		return nil, fmt.Errorf("need %d bytes, got %d: %w", minLen, len(buf), core.ErrPacketTooShort)
	}
	return View(buf), nil
}

// Len returns the number of bytes in the view.
func (v View) Len() int { return len(v) }

// Check returns ErrPacketTooShort unless n bytes are available from off.
func (v View) Check(off, n int) error {
	if off < 0 || n < 0 || off+n > len(v) {
		return fmt.Errorf("range [%d:%d] outside %d bytes: %w", off, off+n, len(v), core.ErrPacketTooShort)
	}
	return nil
}

func (v View) Uint8(off int) uint8 { return v[off] }

func (v View) PutUint8(off int, val uint8) { v[off] = val }

func (v View) Uint16(off int) uint16 { return binary.BigEndian.Uint16(v[off : off+2]) }

func (v View) PutUint16(off int, val uint16) { binary.BigEndian.PutUint16(v[off:off+2], val) }

func (v View) Uint32(off int) uint32 { return binary.BigEndian.Uint32(v[off : off+4]) }

func (v View) PutUint32(off int, val uint32) { binary.BigEndian.PutUint32(v[off:off+4], val) }

// Bytes returns the n bytes at off, sharing the underlying buffer.
func (v View) Bytes(off, n int) []byte { return v[off : off+n : off+n] }

// PutBytes copies b into the view at off.
func (v View) PutBytes(off int, b []byte) { copy(v[off:off+len(b)], b) }

func (v View) mac(off int) core.MacAddress { return core.MacAddress(v[off : off+6]) }

func (v View) putMAC(off int, m core.MacAddress) { copy(v[off:off+6], m[:]) }

func (v View) ipv4(off int) core.IPv4 { return core.IPv4(v[off : off+4]) }

func (v View) putIPv4(off int, ip core.IPv4) { copy(v[off:off+4], ip[:]) }
