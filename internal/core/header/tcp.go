package header

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
)

// TCPMinLen is the length of a TCP header without options.
const TCPMinLen = 20

// TCPDefaultWindow is the receive window advertised by built segments.
const TCPDefaultWindow = 0xFFFF

const (
	tcpSrc      = 0
	tcpDst      = 2
	tcpSeq      = 4
	tcpAck      = 8
	tcpOffset   = 12
	tcpFlags    = 13
	tcpWindow   = 14
	tcpChecksum = 16
	tcpUrgent   = 18
)

// TCP is a view of a TCP segment.
type TCP struct {
	View
}

// NewTCP checks that buf holds at least the fixed 20-byte header.
// Call Validate before trusting HeaderLen or Payload on received data.
func NewTCP(buf []byte) (TCP, error) {
	v, err := NewView(buf, TCPMinLen)
	if err != nil {
		return TCP{}, err
	}
	return TCP{v}, nil
}

func (t TCP) SourcePort() uint16 { return t.Uint16(tcpSrc) }

func (t TCP) SetSourcePort(p uint16) { t.PutUint16(tcpSrc, p) }

func (t TCP) DestinationPort() uint16 { return t.Uint16(tcpDst) }

func (t TCP) SetDestinationPort(p uint16) { t.PutUint16(tcpDst, p) }

func (t TCP) Seq() uint32 { return t.Uint32(tcpSeq) }

func (t TCP) SetSeq(s uint32) { t.PutUint32(tcpSeq, s) }

func (t TCP) Ack() uint32 { return t.Uint32(tcpAck) }

func (t TCP) SetAck(a uint32) { t.PutUint32(tcpAck, a) }

// DataOffset is the header length in 32-bit words.
func (t TCP) DataOffset() uint8 { return t.Uint8(tcpOffset) >> 4 }

// HeaderLen is the header length in bytes, options included.
func (t TCP) HeaderLen() int { return int(t.DataOffset()) * 4 }

// SetHeaderLen writes the data offset for a header length in bytes; reserved bits are cleared.
func (t TCP) SetHeaderLen(l int) { t.PutUint8(tcpOffset, uint8(l/4)<<4) }

func (t TCP) Flags() core.TCPFlags { return core.TCPFlags(t.Uint8(tcpFlags)) & core.FlagMask }

func (t TCP) SetFlags(f core.TCPFlags) { t.PutUint8(tcpFlags, uint8(f&core.FlagMask)) }

func (t TCP) Window() uint16 { return t.Uint16(tcpWindow) }

func (t TCP) SetWindow(w uint16) { t.PutUint16(tcpWindow, w) }

func (t TCP) Checksum() uint16 { return t.Uint16(tcpChecksum) }

func (t TCP) SetChecksum(c uint16) { t.PutUint16(tcpChecksum, c) }

func (t TCP) UrgentPointer() uint16 { return t.Uint16(tcpUrgent) }

func (t TCP) SetUrgentPointer(p uint16) { t.PutUint16(tcpUrgent, p) }

// Validate checks the data offset against the minimum header and the buffer.
func (t TCP) Validate() error {
	hl := t.HeaderLen()
	if hl < TCPMinLen {
		return fmt.Errorf("tcp: data offset %d: %w", t.DataOffset(), core.ErrMalformed)
	}
	if err := t.Check(0, hl); err != nil {
		return fmt.Errorf("tcp: options: %w", err)
	}
	return nil
}

// Payload returns the bytes after the header. Only valid after Validate.
func (t TCP) Payload() []byte { return t.View[t.HeaderLen():] }
