// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawFrame is one frame handed over by a link, zero-copy reference to the driver buffer.
type RawFrame struct {
	Data           []byte    // Raw frame data, zero-copy slice
	Timestamp      time.Time // Receive timestamp
	CaptureLen     uint32    // Actual captured length
	OrigLen        uint32    // Original frame length
	InterfaceIndex int       // Network interface index
}

// Stack is the local network identity used to fill in "self" fields of replies.
// It is a value and is never mutated after construction.
type Stack struct {
	IP  IPv4
	MAC MacAddress
}

// NewStack creates a Stack for the given identity.
func NewStack(ip IPv4, mac MacAddress) Stack {
	return Stack{IP: ip, MAC: mac}
}

// Owns reports whether ip is the local address.
func (s Stack) Owns(ip IPv4) bool {
	return s.IP == ip
}
