// Package decoder implements the L2-L4 protocol analyzer.
package decoder

import (
	"fmt"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/header"
	"firestige.xyz/losenet/internal/core/packet"
)

// Decoder turns one received Ethernet frame into a packet variant.
type Decoder interface {
	Decode(frame []byte) (packet.Packet, error)
}

// Config tunes the standard decoder.
type Config struct {
	// VerifyChecksums rejects frames whose IPv4 header checksum or non-zero
	// UDP/TCP checksum does not verify. Off by default because links with
	// checksum offload hand over frames with unfilled checksums.
	VerifyChecksums bool
}

// StandardDecoder decodes Ethernet II frames carrying ARP or IPv4 (UDP/TCP).
// It holds no per-frame state and never retains the frame after returning,
// except through payload slices in the returned packet.
type StandardDecoder struct {
	cfg Config
}

// NewStandardDecoder creates a decoder.
func NewStandardDecoder(cfg Config) *StandardDecoder {
	return &StandardDecoder{cfg: cfg}
}

// Decode analyzes frame. Unknown EtherTypes and IPv4 protocols produce
// *packet.Unsupported and *packet.IPv4Packet respectively, never an error.
// Frames too short for the headers they announce, or with invalid field
// combinations, produce an error wrapping core.ErrPacketTooShort or
// core.ErrMalformed.
func (d *StandardDecoder) Decode(frame []byte) (packet.Packet, error) {
	eth, err := decodeEthernet(frame)
	if err != nil {
		return nil, err
	}

	switch eth.etherType {
	case header.EtherTypeARP:
		return decodeARP(eth)
	case header.EtherTypeIPv4:
		return d.decodeIPv4(eth)
	default:
		return unsupported(eth), nil
	}
}

// DecodeRaw decodes a frame handed over by a link.
func (d *StandardDecoder) DecodeRaw(raw core.RawFrame) (packet.Packet, error) {
	if raw.CaptureLen != 0 && raw.OrigLen > raw.CaptureLen {
		return nil, fmt.Errorf("frame captured %d of %d bytes: %w", raw.CaptureLen, raw.OrigLen, core.ErrPacketTooShort)
	}
	return d.Decode(raw.Data)
}

func unsupported(eth ethFrame) *packet.Unsupported {
	return &packet.Unsupported{
		SourceMAC: eth.Source(),
		DestMAC:   eth.Destination(),
		EtherType: eth.etherType,
		VLANs:     eth.vlans,
		Data:      eth.payload,
	}
}
