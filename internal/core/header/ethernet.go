package header

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
)

// EthernetLen is the length of an untagged Ethernet II header.
const EthernetLen = 14

// VLANTagLen is the size of one 802.1Q or 802.1ad tag: TPID + TCI.
const VLANTagLen = 4

// vlanIDMask keeps the 12-bit VLAN identifier of a TCI.
const vlanIDMask = 0x0FFF

// EtherType identifies the protocol carried by an Ethernet frame.
type EtherType uint16

// EtherType values.
const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
	EtherTypeVLAN EtherType = 0x8100
	EtherTypeIPv6 EtherType = 0x86DD
	EtherTypeQinQ EtherType = 0x88A8
)

// IsVLAN reports whether t is an 802.1Q or 802.1ad tag protocol identifier.
func (t EtherType) IsVLAN() bool {
	return t == EtherTypeVLAN || t == EtherTypeQinQ
}

// EthernetHeaderLen is the header length with n VLAN tags.
func EthernetHeaderLen(n int) int {
	return EthernetLen + n*VLANTagLen
}

func (t EtherType) String() string {
	switch t {
	case EtherTypeIPv4:
		return "IPv4"
	case EtherTypeARP:
		return "ARP"
	case EtherTypeVLAN:
		return "VLAN"
	case EtherTypeIPv6:
		return "IPv6"
	case EtherTypeQinQ:
		return "QinQ"
	default:
		return fmt.Sprintf("0x%04x", uint16(t))
	}
}

const (
	ethDst  = 0
	ethSrc  = 6
	ethType = 12
)

// Ethernet is a view of an Ethernet II frame.
type Ethernet struct {
	View
}

// NewEthernet checks that buf holds a full Ethernet header.
func NewEthernet(buf []byte) (Ethernet, error) {
	v, err := NewView(buf, EthernetLen)
	if err != nil {
		return Ethernet{}, err
	}
	return Ethernet{v}, nil
}

func (e Ethernet) Destination() core.MacAddress { return e.mac(ethDst) }

func (e Ethernet) SetDestination(m core.MacAddress) { e.putMAC(ethDst, m) }

func (e Ethernet) Source() core.MacAddress { return e.mac(ethSrc) }

func (e Ethernet) SetSource(m core.MacAddress) { e.putMAC(ethSrc, m) }

func (e Ethernet) EtherType() EtherType { return EtherType(e.Uint16(ethType)) }

func (e Ethernet) SetEtherType(t EtherType) { e.PutUint16(ethType, uint16(t)) }

// Untag walks the (possibly nested) VLAN tags following the source address.
// It returns the VLAN IDs outermost first, the EtherType of the payload and
// the payload offset. An untagged frame yields nil IDs and offset EthernetLen.
func (e Ethernet) Untag() (vlans []uint16, inner EtherType, off int, err error) {
	inner = e.EtherType()
	off = EthernetLen
	for inner.IsVLAN() {
		if err := e.Check(off, VLANTagLen); err != nil {
			return nil, 0, 0, fmt.Errorf("vlan tag: %w", err)
		}
		vlans = append(vlans, e.Uint16(off)&vlanIDMask)
		inner = EtherType(e.Uint16(off + 2))
		off += VLANTagLen
	}
	return vlans, inner, off, nil
}

// SetTags writes vlans (outermost first) and the payload EtherType after the
// source address and returns the payload offset. Outer tags carry the 802.1ad
// identifier and the innermost tag 802.1Q. The view must hold
// EthernetHeaderLen(len(vlans)) bytes.
func (e Ethernet) SetTags(vlans []uint16, inner EtherType) int {
	off := ethType
	for i, id := range vlans {
		tpid := EtherTypeVLAN
		if i < len(vlans)-1 {
			tpid = EtherTypeQinQ
		}
		e.PutUint16(off, uint16(tpid))
		e.PutUint16(off+2, id&vlanIDMask)
		off += VLANTagLen
	}
	e.PutUint16(off, uint16(inner))
	return off + 2
}

// Payload returns everything after the header, padding included.
func (e Ethernet) Payload() []byte { return e.View[EthernetLen:] }
