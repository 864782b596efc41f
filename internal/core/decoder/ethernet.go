// Package decoder implements protocol decoding.
package decoder

import (
	"fmt"

	"firestige.xyz/losenet/internal/core/header"
)

// ethFrame is an Ethernet header with its VLAN tags (802.1Q, QinQ) walked.
type ethFrame struct {
	header.Ethernet
	vlans     []uint16
	etherType header.EtherType
	payload   []byte
}

// decodeEthernet checks the Ethernet II header and strips any VLAN tags.
// etherType is the EtherType of the payload, after the last tag.
func decodeEthernet(data []byte) (ethFrame, error) {
	eth, err := header.NewEthernet(data)
	if err != nil {
		return ethFrame{}, fmt.Errorf("ethernet: %w", err)
	}
	vlans, etherType, off, err := eth.Untag()
	if err != nil {
		return ethFrame{}, fmt.Errorf("ethernet: %w", err)
	}
	return ethFrame{
		Ethernet:  eth,
		vlans:     vlans,
		etherType: etherType,
		payload:   data[off:],
	}, nil
}
