// Package core defines the address and identity types shared by every layer.
package core

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

// MacAddress is a 6-byte Ethernet hardware address.
type MacAddress [6]byte

// Broadcast is the Ethernet broadcast address ff:ff:ff:ff:ff:ff.
var Broadcast = MacAddress{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// NewMacAddress creates a MacAddress from its six octets.
func NewMacAddress(b [6]byte) MacAddress {
	return MacAddress(b)
}

// MacAddressFromBytes copies the first six bytes of b.
func MacAddressFromBytes(b []byte) (MacAddress, error) {
	if len(b) < 6 {
		return MacAddress{}, fmt.Errorf("mac address needs 6 bytes, got %d: %w", len(b), ErrPacketTooShort)
	}
	return MacAddress(b[:6]), nil
}

// ParseMAC parses the colon, dash or dot separated form, e.g. "52:54:00:12:34:56".
// Only 48-bit addresses are accepted.
func ParseMAC(s string) (MacAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MacAddress{}, fmt.Errorf("invalid mac address %q: %w", s, err)
	}
	if len(hw) != 6 {
		return MacAddress{}, fmt.Errorf("invalid mac address %q: %d bytes, want 6", s, len(hw))
	}
	return MacAddress(hw), nil
}

// ToBytes returns the address as an array.
func (m MacAddress) ToBytes() [6]byte {
	return [6]byte(m)
}

// IsBroadcast reports whether m is ff:ff:ff:ff:ff:ff.
func (m MacAddress) IsBroadcast() bool {
	return m == Broadcast
}

func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IPv4 is an IPv4 address stored as four octets in network order.
type IPv4 [4]byte

// NewIPv4 creates an address from its four octets, a.b.c.d.
func NewIPv4(a, b, c, d byte) IPv4 {
	return IPv4{a, b, c, d}
}

// IPv4FromUint32 converts a host integer whose most significant byte is the first octet.
func IPv4FromUint32(v uint32) IPv4 {
	var ip IPv4
	binary.BigEndian.PutUint32(ip[:], v)
	return ip
}

// IPv4FromBytes copies the first four bytes of b.
func IPv4FromBytes(b []byte) (IPv4, error) {
	if len(b) < 4 {
		return IPv4{}, fmt.Errorf("ipv4 address needs 4 bytes, got %d: %w", len(b), ErrPacketTooShort)
	}
	return IPv4(b[:4]), nil
}

// ParseIPv4 parses dotted decimal notation.
func ParseIPv4(s string) (IPv4, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPv4{}, fmt.Errorf("invalid ipv4 address %q: %w", s, err)
	}
	if !addr.Is4() {
		return IPv4{}, fmt.Errorf("invalid ipv4 address %q: not an IPv4 address", s)
	}
	return IPv4(addr.As4()), nil
}

// ToUint32 returns the address as a host integer, first octet most significant.
func (ip IPv4) ToUint32() uint32 {
	return binary.BigEndian.Uint32(ip[:])
}

// Addr converts to the standard library value type.
func (ip IPv4) Addr() netip.Addr {
	return netip.AddrFrom4(ip)
}

func (ip IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}
