//go:build linux

package afpacket

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/gopacket/afpacket"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/link"
)

func init() {
	link.Register(Name, func(options map[string]interface{}) (link.Link, error) {
		opt := defaultOptions()
		if err := link.DecodeOptions(options, &opt); err != nil {
			return nil, err
		}
		return Open(opt)
	})
}

// Link sends and receives on one interface through a memory-mapped ring.
type Link struct {
	handle *afpacket.TPacket
	device string
}

// Open binds a raw socket to opt.Device. Requires CAP_NET_RAW.
func Open(opt Options) (*Link, error) {
	if err := opt.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	frameSize, blockSize, numBlocks, err := recomputeSize(opt.BufferSizeMB, opt.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("afpacket: %w: %v", core.ErrConfigInvalid, err)
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(opt.Device),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(opt.PollTimeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("afpacket: open %s: %w", opt.Device, err)
	}

	if opt.Filter {
		prog, err := filterProgram(opt.SnapLen)
		if err != nil {
			tp.Close()
			return nil, fmt.Errorf("afpacket: assemble filter: %w", err)
		}
		if err := tp.SetBPF(prog); err != nil {
			tp.Close()
			return nil, fmt.Errorf("afpacket: set filter: %w", err)
		}
	}

	return &Link{handle: tp, device: opt.Device}, nil
}

// Receive copies the next frame out of the ring. Poll timeouts are absorbed
// so ctx is observed at least once per poll interval.
func (l *Link) Receive(ctx context.Context) (core.RawFrame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return core.RawFrame{}, err
		}
		data, ci, err := l.handle.ReadPacketData()
		switch {
		case err == nil:
			return core.RawFrame{
				Data:           data,
				Timestamp:      ci.Timestamp,
				CaptureLen:     uint32(ci.CaptureLength),
				OrigLen:        uint32(ci.Length),
				InterfaceIndex: ci.InterfaceIndex,
			}, nil
		case errors.Is(err, afpacket.ErrTimeout), errors.Is(err, afpacket.ErrPoll):
			continue
		default:
			return core.RawFrame{}, fmt.Errorf("afpacket: read %s: %w", l.device, err)
		}
	}
}

func (l *Link) Send(frame []byte) error {
	if err := l.handle.WritePacketData(frame); err != nil {
		return fmt.Errorf("afpacket: write %s: %w", l.device, err)
	}
	return nil
}

func (l *Link) Close() error {
	l.handle.Close()
	return nil
}
