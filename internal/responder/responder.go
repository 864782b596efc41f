// Package responder drives the receive, decode, reply loop for one local identity.
package responder

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/decoder"
	"firestige.xyz/losenet/internal/core/header"
	"firestige.xyz/losenet/internal/core/packet"
	"firestige.xyz/losenet/internal/link"
	"firestige.xyz/losenet/internal/log"
	"firestige.xyz/losenet/internal/metrics"
)

// maxFrameLen is the initial size of the transmit buffer: a full Ethernet
// frame without FCS. It grows for larger replies.
const maxFrameLen = 1514

// Responder answers ARP requests for its IP and hands UDP datagrams and TCP
// data segments addressed to it to the configured handlers. It processes one
// frame at a time on the caller's goroutine.
type Responder struct {
	stack   core.Stack
	link    link.Link
	decoder decoder.Decoder

	udp     UDPHandler
	tcp     TCPHandler
	isn     func() uint32
	window  uint16
	limiter *Limiter

	logger   log.Logger
	linkName string
	now      func() time.Time

	txBuf []byte
}

// New creates a Responder for stack on l.
func New(stack core.Stack, l link.Link, opts ...Option) *Responder {
	r := &Responder{
		stack:    stack,
		link:     l,
		decoder:  decoder.NewStandardDecoder(decoder.Config{}),
		isn:      RandomISN(),
		window:   header.TCPDefaultWindow,
		linkName: "default",
		now:      time.Now,
		txBuf:    make([]byte, maxFrameLen),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLogger()
	}
	r.logger = r.logger.WithFields(map[string]interface{}{
		"ip":  stack.IP.String(),
		"mac": stack.MAC.String(),
	})
	return r
}

// Run blocks until the link is exhausted (io.EOF), ctx is done, a handler asks
// to stop, or the link fails. Only a link failure is returned as an error.
func (r *Responder) Run(ctx context.Context) error {
	r.logger.Info("responder started")
	defer func() {
		r.logger.WithField("limited", r.limiter.Rejected()).Info("responder stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		frame, err := r.link.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Debug("link exhausted")
				return nil
			}
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		stop, err := r.HandleFrame(frame)
		if err != nil {
			return err
		}
		if stop {
			r.logger.Info("handler requested stop")
			return nil
		}
	}
}

// HandleFrame decodes one frame and sends its replies. The returned error is
// a send failure; undecodable frames are logged and dropped.
func (r *Responder) HandleFrame(frame core.RawFrame) (stop bool, err error) {
	metrics.FramesReceivedTotal.WithLabelValues(r.linkName).Inc()
	if r.logger.IsTraceEnabled() {
		r.logger.Tracef("rx %d bytes\n%s", len(frame.Data), hex.Dump(frame.Data))
	}

	pkt, err := r.decoder.Decode(frame.Data)
	if err != nil {
		metrics.DecodeErrorsTotal.WithLabelValues(decodeErrorReason(err)).Inc()
		if core.IsDecodeError(err) {
			r.logger.WithError(err).Debug("frame dropped")
		} else {
			r.logger.WithError(err).Warn("decoder failed, frame dropped")
		}
		return false, nil
	}
	metrics.PacketsDecodedTotal.WithLabelValues(pkt.Kind().String()).Inc()

	start := r.now()
	var sent int
	switch p := pkt.(type) {
	case *packet.ARPPacket:
		sent, err = r.handleARP(p)
	case *packet.UDPPacket:
		sent, stop, err = r.handleUDP(p)
	case *packet.TCPPacket:
		sent, stop, err = r.handleTCP(p)
	default:
		r.logger.Tracef("ignored %s", pkt)
	}
	if sent > 0 {
		metrics.FrameLatencySeconds.WithLabelValues(pkt.Kind().String()).Observe(r.now().Sub(start).Seconds())
	}
	return stop, err
}

func (r *Responder) handleARP(p *packet.ARPPacket) (int, error) {
	if p.Type != packet.ARPRequest || !r.stack.Owns(p.TargetIP) {
		r.logger.Tracef("ignored %s", p)
		return 0, nil
	}
	if !r.allow(p.SenderIP) {
		return 0, nil
	}
	reply, err := p.ReplyPacket(r.stack.IP, r.stack.MAC)
	if err != nil {
		return 0, err
	}
	r.logger.Debugf("who-has %s tell %s", p.TargetIP, p.SenderIP)
	return 1, r.send(reply, packet.KindARP, "")
}

func (r *Responder) handleUDP(p *packet.UDPPacket) (sent int, stop bool, err error) {
	if !r.stack.Owns(p.DestIP) || r.udp == nil {
		return 0, false, nil
	}
	payload, stop := r.udp.HandleUDP(p)
	if payload == nil {
		return 0, stop, nil
	}
	if !r.allow(p.SourceIP) {
		return 0, stop, nil
	}
	if err := r.send(p.Reply(payload), packet.KindUDP, ""); err != nil {
		return 0, false, err
	}
	return 1, stop, nil
}

// handleTCP applies the single-exchange reply rules. FIN is checked before
// data, so payload riding on a FIN is acknowledged but not delivered. Data
// is only delivered on segments with ACK set.
func (r *Responder) handleTCP(p *packet.TCPPacket) (sent int, stop bool, err error) {
	if !r.stack.Owns(p.DestIP) {
		return 0, false, nil
	}

	var replies []*packet.TCPPacket
	switch f := p.Flags; {
	case f.Has(core.FlagRST):
		r.logger.Debugf("reset from %s:%d", p.SourceIP, p.SourcePort)
	case f.Has(core.FlagSYN) && !f.Has(core.FlagACK):
		replies = append(replies, p.SynAck(r.isn()))
	case f.Has(core.FlagFIN):
		replies = append(replies, p.AckPacket(), p.FinAck())
	case p.DataLen() == 0:
		// Pure acknowledgement.
	case !f.Has(core.FlagACK):
		r.logger.Debugf("data without ACK from %s:%d", p.SourceIP, p.SourcePort)
	default:
		var payload []byte
		if r.tcp != nil {
			payload, stop = r.tcp.HandleTCP(p)
		}
		if payload != nil {
			replies = append(replies, p.Reply(payload))
		} else {
			replies = append(replies, p.AckPacket())
		}
	}

	if len(replies) == 0 || !r.allow(p.SourceIP) {
		return 0, stop, nil
	}
	for _, reply := range replies {
		reply.Window = r.window
		if err := r.send(reply, packet.KindTCP, reply.Flags.String()); err != nil {
			return sent, false, err
		}
		sent++
	}
	return sent, stop, nil
}

func (r *Responder) allow(src core.IPv4) bool {
	if r.limiter == nil {
		return true
	}
	ok := r.limiter.Allow(src, r.now())
	metrics.LimiterActiveSources.Set(float64(r.limiter.ActiveSources()))
	if !ok {
		metrics.RepliesLimitedTotal.Inc()
		r.logger.WithField("src", src.String()).Debug("reply suppressed by rate limit")
	}
	return ok
}

// send encodes e into the transmit buffer and hands it to the link. The
// buffer is reused, so links must not retain frames after Send returns.
// A reply that cannot be encoded is dropped; a link failure is returned.
func (r *Responder) send(e packet.Encoder, kind packet.Kind, flags string) error {
	if need := e.Len(); need > len(r.txBuf) {
		r.txBuf = make([]byte, need)
	}
	n, err := e.EncodeTo(r.txBuf)
	if err != nil {
		r.logger.WithError(err).Warnf("cannot encode %s reply", kind)
		return nil
	}
	frame := r.txBuf[:n]
	if r.logger.IsTraceEnabled() {
		r.logger.Tracef("tx %d bytes\n%s", n, hex.Dump(frame))
	}
	if err := r.link.Send(frame); err != nil {
		return fmt.Errorf("send %s reply: %w", kind, err)
	}
	metrics.RepliesSentTotal.WithLabelValues(kind.String(), flags).Inc()
	return nil
}

func decodeErrorReason(err error) string {
	if !core.IsDecodeError(err) {
		return "other"
	}
	switch {
	case errors.Is(err, core.ErrPacketTooShort):
		return "too_short"
	case errors.Is(err, core.ErrMalformed):
		return "malformed"
	default:
		return "checksum"
	}
}
