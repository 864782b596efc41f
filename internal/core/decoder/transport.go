// Package decoder implements protocol decoding.
package decoder

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/header"
	"firestige.xyz/losenet/internal/core/packet"
)

// decodeUDP decodes a UDP datagram; the payload is bounded by the length field.
func (d *StandardDecoder) decodeUDP(ep endpoints, data []byte) (packet.Packet, error) {
	udp, err := header.NewUDP(data)
	if err != nil {
		return nil, fmt.Errorf("udp: %w", err)
	}
	if err := udp.Validate(); err != nil {
		return nil, err
	}
	seg := data[:udp.Length()]
	// A zero UDP checksum means the sender did not compute one.
	if d.cfg.VerifyChecksums && udp.Checksum() != 0 &&
		header.Fold(header.Sum(seg, header.PseudoHeaderSum(ep.srcIP, ep.dstIP, header.IPProtoUDP, uint16(len(seg))))) != 0 {
		return nil, fmt.Errorf("udp: %w", core.ErrChecksum)
	}

	return &packet.UDPPacket{
		SourceIP:   ep.srcIP,
		DestIP:     ep.dstIP,
		SourceMAC:  ep.srcMAC,
		DestMAC:    ep.dstMAC,
		VLANs:      ep.vlans,
		SourcePort: udp.SourcePort(),
		DestPort:   udp.DestinationPort(),
		Data:       udp.Payload(),
	}, nil
}

// decodeTCP decodes a TCP segment; options are skipped.
func (d *StandardDecoder) decodeTCP(ep endpoints, data []byte) (packet.Packet, error) {
	tcp, err := header.NewTCP(data)
	if err != nil {
		return nil, fmt.Errorf("tcp: %w", err)
	}
	if err := tcp.Validate(); err != nil {
		return nil, err
	}
	if d.cfg.VerifyChecksums && tcp.Checksum() != 0 &&
		header.Fold(header.Sum(data, header.PseudoHeaderSum(ep.srcIP, ep.dstIP, header.IPProtoTCP, uint16(len(data))))) != 0 {
		return nil, fmt.Errorf("tcp: %w", core.ErrChecksum)
	}

	return &packet.TCPPacket{
		SourceIP:   ep.srcIP,
		DestIP:     ep.dstIP,
		SourceMAC:  ep.srcMAC,
		DestMAC:    ep.dstMAC,
		VLANs:      ep.vlans,
		SourcePort: tcp.SourcePort(),
		DestPort:   tcp.DestinationPort(),
		Seq:        tcp.Seq(),
		Ack:        tcp.Ack(),
		Flags:      tcp.Flags(),
		Window:     tcp.Window(),
		Data:       tcp.Payload(),
	}, nil
}
