package header

import "firestige.xyz/losenet/internal/core"

// Sum adds data to acc as a sequence of big-endian 16-bit words (RFC 1071).
// An odd trailing byte is padded with zero.
func Sum(data []byte, acc uint32) uint32 {
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		acc += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		acc += uint32(data[n-1]) << 8
	}
	return acc
}

// Fold reduces a 32-bit running sum to 16 bits and returns its one's complement.
func Fold(acc uint32) uint16 {
	for acc>>16 != 0 {
		acc = acc&0xFFFF + acc>>16
	}
	return ^uint16(acc)
}

// PseudoHeaderSum is the running sum of the IPv4 pseudo-header used by UDP and TCP.
func PseudoHeaderSum(src, dst core.IPv4, proto IPProtocol, length uint16) uint32 {
	acc := Sum(src[:], 0)
	acc = Sum(dst[:], acc)
	acc += uint32(proto)
	acc += uint32(length)
	return acc
}

// TransportChecksum computes the UDP or TCP checksum of segment (header + payload).
// The segment's own checksum field must be zero when computing.
func TransportChecksum(src, dst core.IPv4, proto IPProtocol, segment []byte) uint16 {
	return Fold(Sum(segment, PseudoHeaderSum(src, dst, proto, uint16(len(segment)))))
}
