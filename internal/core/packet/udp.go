package packet

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/header"
)

// UDPPacket is a UDP datagram with the addressing resolved from its
// Ethernet and IPv4 headers. Data borrows the receive buffer when decoded.
type UDPPacket struct {
	SourceIP   core.IPv4
	DestIP     core.IPv4
	SourceMAC  core.MacAddress
	DestMAC    core.MacAddress
	VLANs      []uint16 // outermost first; nil when untagged
	SourcePort uint16
	DestPort   uint16
	Data       []byte
}

func (p *UDPPacket) Kind() Kind { return KindUDP }

func (p *UDPPacket) String() string {
	return fmt.Sprintf("UDP %s:%d(%s) -> %s:%d(%s) len=%d",
		p.SourceIP, p.SourcePort, p.SourceMAC, p.DestIP, p.DestPort, p.DestMAC, len(p.Data)) + vlanSuffix(p.VLANs)
}

// DataLen is the payload length in bytes.
func (p *UDPPacket) DataLen() int { return len(p.Data) }

// Reply returns a datagram travelling the opposite way with data as payload.
// data is referenced, not copied.
func (p *UDPPacket) Reply(data []byte) *UDPPacket {
	return &UDPPacket{
		SourceIP:   p.DestIP,
		DestIP:     p.SourceIP,
		SourceMAC:  p.DestMAC,
		DestMAC:    p.SourceMAC,
		VLANs:      p.VLANs,
		SourcePort: p.DestPort,
		DestPort:   p.SourcePort,
		Data:       data,
	}
}

func (p *UDPPacket) Len() int { return ipFrameOverhead(p.VLANs) + header.UDPLen + len(p.Data) }

// EncodeTo writes Ethernet + IPv4 + UDP + payload. The UDP checksum covers the
// IPv4 pseudo-header; a computed zero is sent as 0xFFFF.
func (p *UDPPacket) EncodeTo(buf []byte) (int, error) {
	segLen := header.UDPLen + len(p.Data)
	seg, err := encodeIPv4(buf, p.endpoints(), header.IPProtoUDP, segLen)
	if err != nil {
		return 0, fmt.Errorf("udp: %w", err)
	}
	udp, _ := header.NewUDP(seg)
	udp.SetSourcePort(p.SourcePort)
	udp.SetDestinationPort(p.DestPort)
	udp.SetLength(uint16(segLen))
	udp.SetChecksum(0)
	udp.PutBytes(header.UDPLen, p.Data)

	csum := header.TransportChecksum(p.SourceIP, p.DestIP, header.IPProtoUDP, seg)
	if csum == 0 {
		csum = 0xFFFF
	}
	udp.SetChecksum(csum)
	return p.Len(), nil
}

// BuildData serializes the datagram into a fresh frame.
func (p *UDPPacket) BuildData() ([]byte, error) {
	return build(p)
}

func (p *UDPPacket) endpoints() ipEndpoints {
	return ipEndpoints{srcIP: p.SourceIP, dstIP: p.DestIP, srcMAC: p.SourceMAC, dstMAC: p.DestMAC, vlans: p.VLANs}
}
