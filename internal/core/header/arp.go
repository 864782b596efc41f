package header

import "firestige.xyz/losenet/internal/core"

// ARPLen is the length of an ARP message for Ethernet/IPv4.
const ARPLen = 28

// Canonical ARP field values for Ethernet/IPv4.
const (
	ARPHardwareEthernet uint16 = 1
	ARPHardwareLen      uint8  = 6
	ARPProtocolLen      uint8  = 4

	ARPOpRequest uint16 = 1
	ARPOpReply   uint16 = 2
)

const (
	arpHType = 0
	arpPType = 2
	arpHLen  = 4
	arpPLen  = 5
	arpOp    = 6
	arpSHA   = 8
	arpSPA   = 14
	arpTHA   = 18
	arpTPA   = 24
)

// ARP is a view of an ARP message (RFC 826).
type ARP struct {
	View
}

// NewARP checks that buf holds a full Ethernet/IPv4 ARP message.
func NewARP(buf []byte) (ARP, error) {
	v, err := NewView(buf, ARPLen)
	if err != nil {
		return ARP{}, err
	}
	return ARP{v}, nil
}

func (a ARP) HardwareType() uint16 { return a.Uint16(arpHType) }

func (a ARP) SetHardwareType(t uint16) { a.PutUint16(arpHType, t) }

func (a ARP) ProtocolType() EtherType { return EtherType(a.Uint16(arpPType)) }

func (a ARP) SetProtocolType(t EtherType) { a.PutUint16(arpPType, uint16(t)) }

func (a ARP) HardwareLen() uint8 { return a.Uint8(arpHLen) }

func (a ARP) SetHardwareLen(l uint8) { a.PutUint8(arpHLen, l) }

func (a ARP) ProtocolLen() uint8 { return a.Uint8(arpPLen) }

func (a ARP) SetProtocolLen(l uint8) { a.PutUint8(arpPLen, l) }

func (a ARP) Operation() uint16 { return a.Uint16(arpOp) }

func (a ARP) SetOperation(op uint16) { a.PutUint16(arpOp, op) }

func (a ARP) SenderMAC() core.MacAddress { return a.mac(arpSHA) }

func (a ARP) SetSenderMAC(m core.MacAddress) { a.putMAC(arpSHA, m) }

func (a ARP) SenderIP() core.IPv4 { return a.ipv4(arpSPA) }

func (a ARP) SetSenderIP(ip core.IPv4) { a.putIPv4(arpSPA, ip) }

func (a ARP) TargetMAC() core.MacAddress { return a.mac(arpTHA) }

func (a ARP) SetTargetMAC(m core.MacAddress) { a.putMAC(arpTHA, m) }

func (a ARP) TargetIP() core.IPv4 { return a.ipv4(arpTPA) }

func (a ARP) SetTargetIP(ip core.IPv4) { a.putIPv4(arpTPA, ip) }

// IsEthernetIPv4 reports whether the address space fields describe Ethernet/IPv4.
func (a ARP) IsEthernetIPv4() bool {
	return a.HardwareType() == ARPHardwareEthernet &&
		a.ProtocolType() == EtherTypeIPv4 &&
		a.HardwareLen() == ARPHardwareLen &&
		a.ProtocolLen() == ARPProtocolLen
}

// SetEthernetIPv4 writes the canonical Ethernet/IPv4 address space fields.
func (a ARP) SetEthernetIPv4() {
	a.SetHardwareType(ARPHardwareEthernet)
	a.SetProtocolType(EtherTypeIPv4)
	a.SetHardwareLen(ARPHardwareLen)
	a.SetProtocolLen(ARPProtocolLen)
}
