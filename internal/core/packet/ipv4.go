package packet

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/header"
)

// ipFrameOverhead is Ethernet with len(vlans) tags + option-less IPv4.
func ipFrameOverhead(vlans []uint16) int {
	return header.EthernetHeaderLen(len(vlans)) + header.IPv4MinLen
}

// maxIPPayload is the largest transport segment an IPv4 total length can describe.
const maxIPPayload = 0xFFFF - header.IPv4MinLen

// ipEndpoints are the addressing fields shared by UDP and TCP packets.
type ipEndpoints struct {
	srcIP, dstIP   core.IPv4
	srcMAC, dstMAC core.MacAddress
	vlans          []uint16
}

// encodeIPv4 writes the Ethernet and IPv4 headers for a segment of segLen
// bytes and returns the view over the segment area.
func encodeIPv4(buf []byte, ep ipEndpoints, proto header.IPProtocol, segLen int) ([]byte, error) {
	if segLen > maxIPPayload {
		return nil, fmt.Errorf("%s segment of %d bytes: %w", proto, segLen, core.ErrPayloadTooBig)
	}
	overhead := ipFrameOverhead(ep.vlans)
	total := overhead + segLen
	if err := checkBuffer(buf, total); err != nil {
		return nil, err
	}
	buf = buf[:total]

	eth, _ := header.NewEthernet(buf)
	eth.SetDestination(ep.dstMAC)
	eth.SetSource(ep.srcMAC)
	off := eth.SetTags(ep.vlans, header.EtherTypeIPv4)

	ip, _ := header.NewIPv4(buf[off:])
	ip.SetVersionIHL(header.IPv4MinLen)
	ip.SetTOS(0)
	ip.SetTotalLength(uint16(header.IPv4MinLen + segLen))
	ip.SetID(0)
	ip.SetFlagsFragment(header.IPv4FlagDF)
	ip.SetTTL(header.IPv4DefaultTTL)
	ip.SetProtocol(proto)
	ip.SetChecksum(0)
	ip.SetSource(ep.srcIP)
	ip.SetDestination(ep.dstIP)
	ip.SetChecksum(ip.ComputeChecksum())

	return buf[overhead:], nil
}
