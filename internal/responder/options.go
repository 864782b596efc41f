package responder

import (
	"math/rand"
	"time"

	"firestige.xyz/losenet/internal/core/decoder"
	"firestige.xyz/losenet/internal/log"
)

type Option func(*Responder)

// WithDecoder replaces the default decoder (no checksum verification).
func WithDecoder(d decoder.Decoder) Option {
	return func(r *Responder) { r.decoder = d }
}

func WithUDPHandler(h UDPHandler) Option {
	return func(r *Responder) { r.udp = h }
}

func WithTCPHandler(h TCPHandler) Option {
	return func(r *Responder) { r.tcp = h }
}

// WithISN sets the source of initial sequence numbers for SYN/ACK.
func WithISN(isn func() uint32) Option {
	return func(r *Responder) { r.isn = isn }
}

// WithWindow sets the receive window advertised on every generated segment.
func WithWindow(window uint16) Option {
	return func(r *Responder) {
		if window != 0 {
			r.window = window
		}
	}
}

// WithLimiter enables per-source reply limiting. A nil limiter disables it.
func WithLimiter(l *Limiter) Option {
	return func(r *Responder) { r.limiter = l }
}

func WithLogger(l log.Logger) Option {
	return func(r *Responder) { r.logger = l }
}

// WithLinkName labels link metrics.
func WithLinkName(name string) Option {
	return func(r *Responder) { r.linkName = name }
}

func withClock(now func() time.Time) Option {
	return func(r *Responder) { r.now = now }
}

// FixedISN always answers SYN with isn.
func FixedISN(isn uint32) func() uint32 {
	return func() uint32 { return isn }
}

// RandomISN draws a fresh initial sequence number per SYN.
func RandomISN() func() uint32 {
	return rand.Uint32
}
