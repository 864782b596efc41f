// Package decoder implements protocol decoding.
package decoder

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/header"
	"firestige.xyz/losenet/internal/core/packet"
)

// decodeIPv4 decodes the IPv4 header and dispatches on the protocol field.
// Options are skipped. Bytes beyond the total length are link padding and are
// dropped before the transport header is read.
func (d *StandardDecoder) decodeIPv4(eth ethFrame) (packet.Packet, error) {
	ip, err := header.NewIPv4(eth.payload)
	if err != nil {
		return nil, fmt.Errorf("ipv4: %w", err)
	}
	if err := ip.Validate(); err != nil {
		return nil, err
	}
	if d.cfg.VerifyChecksums && !ip.ChecksumValid() {
		return nil, fmt.Errorf("ipv4: header: %w", core.ErrChecksum)
	}

	ep := endpoints{
		srcIP:  ip.Source(),
		dstIP:  ip.Destination(),
		srcMAC: eth.Source(),
		dstMAC: eth.Destination(),
		vlans:  eth.vlans,
	}
	payload := ip.Payload()

	// Fragments are not reassembled; only a first fragment carries a transport
	// header and even then the payload is incomplete.
	if ip.IsFragment() {
		return otherIPv4(ep, ip, payload), nil
	}

	switch ip.Protocol() {
	case header.IPProtoUDP:
		return d.decodeUDP(ep, payload)
	case header.IPProtoTCP:
		return d.decodeTCP(ep, payload)
	default:
		return otherIPv4(ep, ip, payload), nil
	}
}

// endpoints are the addresses recovered from the Ethernet and IPv4 headers.
type endpoints struct {
	srcIP, dstIP   core.IPv4
	srcMAC, dstMAC core.MacAddress
	vlans          []uint16
}

func otherIPv4(ep endpoints, ip header.IPv4, payload []byte) *packet.IPv4Packet {
	return &packet.IPv4Packet{
		SourceIP:  ep.srcIP,
		DestIP:    ep.dstIP,
		SourceMAC: ep.srcMAC,
		DestMAC:   ep.dstMAC,
		VLANs:     ep.vlans,
		Protocol:  ip.Protocol(),
		TTL:       ip.TTL(),
		Data:      payload,
	}
}
