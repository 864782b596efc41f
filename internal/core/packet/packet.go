// Package packet defines the decoded packet variants and the builders that
// serialize them into complete Ethernet frames or derive replies from them.
package packet

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/header"
)

// Kind tags the variant of a Packet.
type Kind uint8

const (
	KindUnsupported Kind = iota
	KindARP
	KindIPv4
	KindUDP
	KindTCP
)

func (k Kind) String() string {
	switch k {
	case KindARP:
		return "arp"
	case KindIPv4:
		return "ipv4"
	case KindUDP:
		return "udp"
	case KindTCP:
		return "tcp"
	default:
		return "unsupported"
	}
}

// Packet is one decoded frame. Use a type switch on *ARPPacket, *UDPPacket,
// *TCPPacket, *IPv4Packet or *Unsupported to reach the fields.
type Packet interface {
	Kind() Kind
	fmt.Stringer
}

// Encoder serializes a packet into a complete Ethernet frame.
type Encoder interface {
	// Len is the size of the encoded frame in bytes.
	Len() int
	// EncodeTo writes the frame into buf and returns the number of bytes written.
	EncodeTo(buf []byte) (int, error)
	// BuildData allocates a buffer of exactly Len bytes and encodes into it.
	BuildData() ([]byte, error)
}

// IPv4Packet is an IPv4 datagram whose protocol is neither UDP nor TCP.
type IPv4Packet struct {
	SourceIP  core.IPv4
	DestIP    core.IPv4
	SourceMAC core.MacAddress
	DestMAC   core.MacAddress
	VLANs     []uint16
	Protocol  header.IPProtocol
	TTL       uint8
	Data      []byte
}

func (p *IPv4Packet) Kind() Kind { return KindIPv4 }

func (p *IPv4Packet) String() string {
	return fmt.Sprintf("IPv4 %s -> %s proto=%s len=%d%s", p.SourceIP, p.DestIP, p.Protocol, len(p.Data), vlanSuffix(p.VLANs))
}

// Unsupported is a frame whose EtherType (or ARP address space) is not handled.
// It is not an error: arbitrary frames show up on a shared segment. EtherType
// and Data are those found after any VLAN tags.
type Unsupported struct {
	SourceMAC core.MacAddress
	DestMAC   core.MacAddress
	EtherType header.EtherType
	VLANs     []uint16
	Data      []byte
}

func (p *Unsupported) Kind() Kind { return KindUnsupported }

func (p *Unsupported) String() string {
	return fmt.Sprintf("Unsupported %s -> %s type=%s len=%d%s", p.SourceMAC, p.DestMAC, p.EtherType, len(p.Data), vlanSuffix(p.VLANs))
}

func vlanSuffix(vlans []uint16) string {
	if len(vlans) == 0 {
		return ""
	}
	return fmt.Sprintf(" vlan=%v", vlans)
}

func build(e Encoder) ([]byte, error) {
	buf := make([]byte, e.Len())
	n, err := e.EncodeTo(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func checkBuffer(buf []byte, need int) error {
	if len(buf) < need {
		return fmt.Errorf("encode needs %d bytes, buffer has %d: %w", need, len(buf), core.ErrPacketTooShort)
	}
	return nil
}
