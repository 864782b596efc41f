package decoder

import (
	"fmt"

	"firestige.xyz/losenet/internal/core/header"
	"firestige.xyz/losenet/internal/core/packet"
)

// decodeARP decodes the 28-byte ARP message following the Ethernet header.
// Trailing bytes (minimum frame padding) are ignored.
func decodeARP(eth ethFrame) (packet.Packet, error) {
	arp, err := header.NewARP(eth.payload)
	if err != nil {
		return nil, fmt.Errorf("arp: %w", err)
	}
	if !arp.IsEthernetIPv4() {
		return unsupported(eth), nil
	}
	return &packet.ARPPacket{
		SenderIP:  arp.SenderIP(),
		SenderMAC: arp.SenderMAC(),
		TargetIP:  arp.TargetIP(),
		TargetMAC: arp.TargetMAC(),
		Type:      packet.ARPTypeFromOp(arp.Operation()),
		VLANs:     eth.vlans,
	}, nil
}
