// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors, wrapped with layer context by the decoder and builders.
var (
	// Decoding errors
	ErrPacketTooShort = errors.New("losenet: packet too short")
	ErrMalformed      = errors.New("losenet: malformed header")
	ErrChecksum       = errors.New("losenet: checksum mismatch")

	// Reply construction errors
	ErrNotARPRequest = errors.New("losenet: not an arp request")
	ErrPayloadTooBig = errors.New("losenet: payload too big")

	// Link errors
	ErrLinkNotFound = errors.New("losenet: link type not found")
	ErrLinkClosed   = errors.New("losenet: link closed")

	// Configuration errors
	ErrConfigInvalid = errors.New("losenet: invalid configuration")
)

// IsDecodeError reports whether err means the frame could not be decoded and must be dropped.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrPacketTooShort) || errors.Is(err, ErrMalformed) || errors.Is(err, ErrChecksum)
}
