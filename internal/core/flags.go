package core

import "strings"

// TCPFlags is the control-bit set of a TCP segment, using the wire bit positions.
type TCPFlags uint8

// TCP flag constants.
const (
	FlagFIN TCPFlags = 1 << iota // No more data from sender
	FlagSYN                      // Synchronize sequence numbers
	FlagRST                      // Reset the connection
	FlagPSH                      // Push function
	FlagACK                      // Acknowledgment field significant
	FlagURG                      // Urgent pointer field significant
)

// FlagMask covers the six control bits understood here.
const FlagMask TCPFlags = 0x3F

var flagNames = []struct {
	flag TCPFlags
	name string
}{
	{FlagFIN, "FIN"},
	{FlagSYN, "SYN"},
	{FlagRST, "RST"},
	{FlagPSH, "PSH"},
	{FlagACK, "ACK"},
	{FlagURG, "URG"},
}

// Contains reports whether every flag in other is also set in f.
func (f TCPFlags) Contains(other TCPFlags) bool {
	return f&other == other
}

// Has is Contains for a single flag.
func (f TCPFlags) Has(flag TCPFlags) bool { return f.Contains(flag) }

func (f TCPFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var names []string
	for _, fn := range flagNames {
		if f.Contains(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}
