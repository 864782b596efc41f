package packet

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/header"
)

// ARPFrameLen is the size of an encoded untagged ARP frame: Ethernet + ARP, no padding.
const ARPFrameLen = header.EthernetLen + header.ARPLen

// ARPType is the ARP operation.
type ARPType uint8

const (
	ARPUnsupported ARPType = iota
	ARPRequest
	ARPReply
)

// ARPTypeFromOp maps a wire operation code; unknown codes map to ARPUnsupported.
func ARPTypeFromOp(op uint16) ARPType {
	switch op {
	case header.ARPOpRequest:
		return ARPRequest
	case header.ARPOpReply:
		return ARPReply
	default:
		return ARPUnsupported
	}
}

// Op returns the wire operation code; ARPUnsupported encodes as 0.
func (t ARPType) Op() uint16 {
	switch t {
	case ARPRequest:
		return header.ARPOpRequest
	case ARPReply:
		return header.ARPOpReply
	default:
		return 0
	}
}

func (t ARPType) String() string {
	switch t {
	case ARPRequest:
		return "request"
	case ARPReply:
		return "reply"
	default:
		return "unsupported"
	}
}

// ARPPacket is an Ethernet/IPv4 ARP message.
type ARPPacket struct {
	SenderIP  core.IPv4
	SenderMAC core.MacAddress
	TargetIP  core.IPv4
	TargetMAC core.MacAddress
	Type      ARPType
	VLANs     []uint16 // outermost first; nil when untagged
}

// NewARPPacket creates an ARP packet from explicit fields.
func NewARPPacket(senderIP core.IPv4, senderMAC core.MacAddress, targetIP core.IPv4, targetMAC core.MacAddress, t ARPType) *ARPPacket {
	return &ARPPacket{
		SenderIP:  senderIP,
		SenderMAC: senderMAC,
		TargetIP:  targetIP,
		TargetMAC: targetMAC,
		Type:      t,
	}
}

func (p *ARPPacket) Kind() Kind { return KindARP }

func (p *ARPPacket) String() string {
	return fmt.Sprintf("ARP %s %s(%s) -> %s(%s)%s", p.Type, p.SenderIP, p.SenderMAC, p.TargetIP, p.TargetMAC, vlanSuffix(p.VLANs))
}

// ReplyPacket answers a request on behalf of localIP/localMAC: the local
// identity becomes the sender and the requester becomes the target.
func (p *ARPPacket) ReplyPacket(localIP core.IPv4, localMAC core.MacAddress) (*ARPPacket, error) {
	if p.Type != ARPRequest {
		return nil, fmt.Errorf("arp %s from %s: %w", p.Type, p.SenderIP, core.ErrNotARPRequest)
	}
	reply := NewARPPacket(localIP, localMAC, p.SenderIP, p.SenderMAC, ARPReply)
	reply.VLANs = p.VLANs
	return reply, nil
}

func (p *ARPPacket) Len() int { return header.EthernetHeaderLen(len(p.VLANs)) + header.ARPLen }

// EncodeTo writes the Ethernet header (broadcast destination) and the ARP
// message with the canonical Ethernet/IPv4 address space fields.
func (p *ARPPacket) EncodeTo(buf []byte) (int, error) {
	n := p.Len()
	if err := checkBuffer(buf, n); err != nil {
		return 0, err
	}
	eth, _ := header.NewEthernet(buf[:n])
	eth.SetDestination(core.Broadcast)
	eth.SetSource(p.SenderMAC)
	off := eth.SetTags(p.VLANs, header.EtherTypeARP)

	arp, _ := header.NewARP(buf[off:n])
	arp.SetEthernetIPv4()
	arp.SetOperation(p.Type.Op())
	arp.SetSenderMAC(p.SenderMAC)
	arp.SetSenderIP(p.SenderIP)
	arp.SetTargetMAC(p.TargetMAC)
	arp.SetTargetIP(p.TargetIP)
	return n, nil
}

// BuildData serializes the packet into a fresh frame, 42 bytes when untagged.
func (p *ARPPacket) BuildData() ([]byte, error) {
	return build(p)
}
