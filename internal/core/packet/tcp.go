package packet

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/header"
)

// TCPPacket is a TCP segment with the addressing resolved from its Ethernet
// and IPv4 headers. Data borrows the receive buffer when decoded.
//
// Only the replies needed for a single exchange are derived here: SYN/ACK on
// connect, ACK or data reply on receive, ACK then FIN/ACK on close. There is no
// connection state; sequence numbers are threaded through the packets.
type TCPPacket struct {
	SourceIP   core.IPv4
	DestIP     core.IPv4
	SourceMAC  core.MacAddress
	DestMAC    core.MacAddress
	VLANs      []uint16 // outermost first; nil when untagged
	SourcePort uint16
	DestPort   uint16
	Seq        uint32
	Ack        uint32
	Flags      core.TCPFlags
	Window     uint16
	Data       []byte
}

func (p *TCPPacket) Kind() Kind { return KindTCP }

func (p *TCPPacket) String() string {
	return fmt.Sprintf("TCP %s:%d(%s) -> %s:%d(%s) [%s] seq=%d ack=%d len=%d",
		p.SourceIP, p.SourcePort, p.SourceMAC, p.DestIP, p.DestPort, p.DestMAC,
		p.Flags, p.Seq, p.Ack, len(p.Data)) + vlanSuffix(p.VLANs)
}

// DataLen is the payload length in bytes.
func (p *TCPPacket) DataLen() int { return len(p.Data) }

// SegmentLen is the sequence space consumed by the segment: payload plus one
// for each of SYN and FIN.
func (p *TCPPacket) SegmentLen() uint32 {
	n := uint32(len(p.Data))
	if p.Flags.Contains(core.FlagSYN) {
		n++
	}
	if p.Flags.Contains(core.FlagFIN) {
		n++
	}
	return n
}

// AckPacket derives a pure acknowledgement of p: addresses and ports swapped,
// seq taken from p's ack, ack covering everything p carried, flags = ACK and
// no payload.
func (p *TCPPacket) AckPacket() *TCPPacket {
	return &TCPPacket{
		SourceIP:   p.DestIP,
		DestIP:     p.SourceIP,
		SourceMAC:  p.DestMAC,
		DestMAC:    p.SourceMAC,
		VLANs:      p.VLANs,
		SourcePort: p.DestPort,
		DestPort:   p.SourcePort,
		Seq:        p.Ack,
		Ack:        p.Seq + p.SegmentLen(),
		Flags:      core.FlagACK,
		Window:     header.TCPDefaultWindow,
	}
}

// SynAck answers a SYN: ack = seq+1, seq = isn, flags = SYN|ACK.
func (p *TCPPacket) SynAck(isn uint32) *TCPPacket {
	r := p.AckPacket()
	r.Seq = isn
	r.Flags = core.FlagSYN | core.FlagACK
	return r
}

// FinAck is the second segment of the simplified close: the same numbers as
// AckPacket with FIN added. The peer's final ACK is not awaited.
func (p *TCPPacket) FinAck() *TCPPacket {
	r := p.AckPacket()
	r.Flags |= core.FlagFIN
	return r
}

// Reply derives a data-carrying acknowledgement (ACK|PSH) with data as payload.
// data is referenced, not copied.
func (p *TCPPacket) Reply(data []byte) *TCPPacket {
	r := p.AckPacket()
	r.Flags |= core.FlagPSH
	r.Data = data
	return r
}

func (p *TCPPacket) Len() int { return ipFrameOverhead(p.VLANs) + header.TCPMinLen + len(p.Data) }

// EncodeTo writes Ethernet + IPv4 + TCP (no options) + payload with both checksums.
func (p *TCPPacket) EncodeTo(buf []byte) (int, error) {
	segLen := header.TCPMinLen + len(p.Data)
	seg, err := encodeIPv4(buf, p.endpoints(), header.IPProtoTCP, segLen)
	if err != nil {
		return 0, fmt.Errorf("tcp: %w", err)
	}
	tcp, _ := header.NewTCP(seg)
	tcp.SetSourcePort(p.SourcePort)
	tcp.SetDestinationPort(p.DestPort)
	tcp.SetSeq(p.Seq)
	tcp.SetAck(p.Ack)
	tcp.SetHeaderLen(header.TCPMinLen)
	tcp.SetFlags(p.Flags)
	tcp.SetWindow(p.Window)
	tcp.SetChecksum(0)
	tcp.SetUrgentPointer(0)
	tcp.PutBytes(header.TCPMinLen, p.Data)
	tcp.SetChecksum(header.TransportChecksum(p.SourceIP, p.DestIP, header.IPProtoTCP, seg))
	return p.Len(), nil
}

// BuildData serializes the segment into a fresh frame.
func (p *TCPPacket) BuildData() ([]byte, error) {
	return build(p)
}

func (p *TCPPacket) endpoints() ipEndpoints {
	return ipEndpoints{srcIP: p.SourceIP, dstIP: p.DestIP, srcMAC: p.SourceMAC, dstMAC: p.DestMAC, vlans: p.VLANs}
}
