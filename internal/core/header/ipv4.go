package header

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
)

// IPv4MinLen is the length of an IPv4 header without options.
const IPv4MinLen = 20

// IPProtocol is the IPv4 protocol field.
type IPProtocol uint8

// Protocol numbers.
const (
	IPProtoICMP IPProtocol = 1
	IPProtoTCP  IPProtocol = 6
	IPProtoUDP  IPProtocol = 17
)

func (p IPProtocol) String() string {
	switch p {
	case IPProtoICMP:
		return "ICMP"
	case IPProtoTCP:
		return "TCP"
	case IPProtoUDP:
		return "UDP"
	default:
		return fmt.Sprintf("proto(%d)", uint8(p))
	}
}

// Defaults for headers built by this package.
const (
	IPv4DefaultTTL = 64
	IPv4FlagDF     = 0x4000
	IPv4FlagMF     = 0x2000
)

const (
	ipVerIHL   = 0
	ipTOS      = 1
	ipTotalLen = 2
	ipID       = 4
	ipFragment = 6
	ipTTL      = 8
	ipProto    = 9
	ipChecksum = 10
	ipSrc      = 12
	ipDst      = 16
)

// IPv4 is a view of an IPv4 header and the rest of the datagram.
type IPv4 struct {
	View
}

// NewIPv4 checks that buf holds at least the fixed 20-byte header.
// Call Validate before trusting HeaderLen or Payload on received data.
func NewIPv4(buf []byte) (IPv4, error) {
	v, err := NewView(buf, IPv4MinLen)
	if err != nil {
		return IPv4{}, err
	}
	return IPv4{v}, nil
}

func (h IPv4) Version() uint8 { return h.Uint8(ipVerIHL) >> 4 }

// IHL is the header length in 32-bit words.
func (h IPv4) IHL() uint8 { return h.Uint8(ipVerIHL) & 0x0F }

// HeaderLen is the header length in bytes, options included.
func (h IPv4) HeaderLen() int { return int(h.IHL()) * 4 }

// SetVersionIHL writes version 4 and a header length in bytes.
func (h IPv4) SetVersionIHL(headerLen int) { h.PutUint8(ipVerIHL, 4<<4|uint8(headerLen/4)&0x0F) }

func (h IPv4) TOS() uint8 { return h.Uint8(ipTOS) }

func (h IPv4) SetTOS(tos uint8) { h.PutUint8(ipTOS, tos) }

func (h IPv4) TotalLength() uint16 { return h.Uint16(ipTotalLen) }

func (h IPv4) SetTotalLength(l uint16) { h.PutUint16(ipTotalLen, l) }

func (h IPv4) ID() uint16 { return h.Uint16(ipID) }

func (h IPv4) SetID(id uint16) { h.PutUint16(ipID, id) }

// FlagsFragment returns the raw flags + fragment offset field.
func (h IPv4) FlagsFragment() uint16 { return h.Uint16(ipFragment) }

func (h IPv4) SetFlagsFragment(v uint16) { h.PutUint16(ipFragment, v) }

// IsFragment reports whether MF is set or the fragment offset is non-zero.
func (h IPv4) IsFragment() bool {
	ff := h.FlagsFragment()
	return ff&IPv4FlagMF != 0 || ff&0x1FFF != 0
}

func (h IPv4) TTL() uint8 { return h.Uint8(ipTTL) }

func (h IPv4) SetTTL(ttl uint8) { h.PutUint8(ipTTL, ttl) }

func (h IPv4) Protocol() IPProtocol { return IPProtocol(h.Uint8(ipProto)) }

func (h IPv4) SetProtocol(p IPProtocol) { h.PutUint8(ipProto, uint8(p)) }

func (h IPv4) Checksum() uint16 { return h.Uint16(ipChecksum) }

func (h IPv4) SetChecksum(c uint16) { h.PutUint16(ipChecksum, c) }

func (h IPv4) Source() core.IPv4 { return h.ipv4(ipSrc) }

func (h IPv4) SetSource(ip core.IPv4) { h.putIPv4(ipSrc, ip) }

func (h IPv4) Destination() core.IPv4 { return h.ipv4(ipDst) }

func (h IPv4) SetDestination(ip core.IPv4) { h.putIPv4(ipDst, ip) }

// Validate checks version, header length and total length against the buffer.
func (h IPv4) Validate() error {
	if v := h.Version(); v != 4 {
		return fmt.Errorf("ipv4: version %d: %w", v, core.ErrMalformed)
	}
	hl := h.HeaderLen()
	if hl < IPv4MinLen {
		return fmt.Errorf("ipv4: header length %d: %w", hl, core.ErrMalformed)
	}
	if err := h.Check(0, hl); err != nil {
		return fmt.Errorf("ipv4: options: %w", err)
	}
	total := int(h.TotalLength())
	if total < hl {
		return fmt.Errorf("ipv4: total length %d below header length %d: %w", total, hl, core.ErrMalformed)
	}
	if err := h.Check(0, total); err != nil {
		return fmt.Errorf("ipv4: truncated datagram: %w", err)
	}
	return nil
}

// Payload returns the bytes between the header and the total length, so
// link-layer padding is excluded. Only valid after Validate.
func (h IPv4) Payload() []byte {
	return h.View[h.HeaderLen():h.TotalLength()]
}

// ComputeChecksum returns the header checksum with the checksum field treated as zero.
func (h IPv4) ComputeChecksum() uint16 {
	hl := h.HeaderLen()
	sum := Sum(h.View[:ipChecksum], 0)
	sum = Sum(h.View[ipChecksum+2:hl], sum)
	return Fold(sum)
}

// ChecksumValid verifies the stored header checksum.
func (h IPv4) ChecksumValid() bool {
	return Fold(Sum(h.View[:h.HeaderLen()], 0)) == 0
}
