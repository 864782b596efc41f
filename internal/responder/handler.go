package responder

import "firestige.xyz/losenet/internal/core/packet"

// UDPHandler answers datagrams addressed to the local IP. A non-nil reply is
// sent back to the sender; stop ends Run after the reply is sent.
type UDPHandler interface {
	HandleUDP(pkt *packet.UDPPacket) (reply []byte, stop bool)
}

// TCPHandler receives the payload of data segments addressed to the local IP.
// A non-nil reply is sent as ACK|PSH, nil as a pure ACK. stop ends Run after
// the segment is acknowledged.
type TCPHandler interface {
	HandleTCP(pkt *packet.TCPPacket) (reply []byte, stop bool)
}

type UDPHandlerFunc func(pkt *packet.UDPPacket) ([]byte, bool)

func (f UDPHandlerFunc) HandleUDP(pkt *packet.UDPPacket) ([]byte, bool) { return f(pkt) }

type TCPHandlerFunc func(pkt *packet.TCPPacket) ([]byte, bool)

func (f TCPHandlerFunc) HandleTCP(pkt *packet.TCPPacket) ([]byte, bool) { return f(pkt) }
