package header

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
)

// UDPLen is the length of a UDP header.
const UDPLen = 8

const (
	udpSrc      = 0
	udpDst      = 2
	udpLength   = 4
	udpChecksum = 6
)

// UDP is a view of a UDP datagram.
type UDP struct {
	View
}

// NewUDP checks that buf holds a full UDP header.
func NewUDP(buf []byte) (UDP, error) {
	v, err := NewView(buf, UDPLen)
	if err != nil {
		return UDP{}, err
	}
	return UDP{v}, nil
}

func (u UDP) SourcePort() uint16 { return u.Uint16(udpSrc) }

func (u UDP) SetSourcePort(p uint16) { u.PutUint16(udpSrc, p) }

func (u UDP) DestinationPort() uint16 { return u.Uint16(udpDst) }

func (u UDP) SetDestinationPort(p uint16) { u.PutUint16(udpDst, p) }

// Length covers header and payload.
func (u UDP) Length() uint16 { return u.Uint16(udpLength) }

func (u UDP) SetLength(l uint16) { u.PutUint16(udpLength, l) }

func (u UDP) Checksum() uint16 { return u.Uint16(udpChecksum) }

func (u UDP) SetChecksum(c uint16) { u.PutUint16(udpChecksum, c) }

// Validate checks the length field against the header size and the buffer.
func (u UDP) Validate() error {
	l := int(u.Length())
	if l < UDPLen {
		return fmt.Errorf("udp: length %d: %w", l, core.ErrMalformed)
	}
	if err := u.Check(0, l); err != nil {
		return fmt.Errorf("udp: truncated datagram: %w", err)
	}
	return nil
}

// Payload returns the bytes covered by the length field. Only valid after Validate.
func (u UDP) Payload() []byte { return u.View[UDPLen:u.Length()] }
