// Package pcapfile replays frames from a pcap file and records sent frames to another.
package pcapfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/link"
)

const Name = "pcapfile"

const defaultSnapLen = 65535

type Options struct {
	Input   string `mapstructure:"input"`
	Output  string `mapstructure:"output"`
	SnapLen uint32 `mapstructure:"snap_len"`
}

func init() {
	link.Register(Name, func(options map[string]interface{}) (link.Link, error) {
		var opt Options
		if err := link.DecodeOptions(options, &opt); err != nil {
			return nil, err
		}
		return Open(opt)
	})
}

// Link reads frames in file order. Sent frames are appended to the output
// capture when one is configured and discarded otherwise.
type Link struct {
	reader *pcapgo.Reader
	writer *pcapgo.Writer
	buf    *bufio.Writer

	closers []io.Closer

	mu     sync.Mutex
	closed bool
	now    func() time.Time
}

// Open opens opt.Input for reading and creates opt.Output if set.
func Open(opt Options) (*Link, error) {
	if opt.Input == "" {
		return nil, fmt.Errorf("pcapfile: input is required: %w", core.ErrConfigInvalid)
	}
	in, err := os.Open(opt.Input)
	if err != nil {
		return nil, fmt.Errorf("pcapfile: %w", err)
	}

	var out io.WriteCloser
	if opt.Output != "" {
		f, err := os.Create(opt.Output)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("pcapfile: %w", err)
		}
		out = f
	}

	l, err := New(in, out, opt.SnapLen)
	if err != nil {
		in.Close()
		if out != nil {
			out.Close()
		}
		return nil, err
	}
	l.closers = append(l.closers, in)
	if out != nil {
		l.closers = append(l.closers, out)
	}
	return l, nil
}

// New wraps an open capture stream. w may be nil.
func New(r io.Reader, w io.Writer, snapLen uint32) (*Link, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("pcapfile: read header: %w", err)
	}
	if lt := reader.LinkType(); lt != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("pcapfile: link type %s is not ethernet: %w", lt, core.ErrConfigInvalid)
	}

	l := &Link{reader: reader, now: time.Now}
	if w != nil {
		if snapLen == 0 {
			snapLen = defaultSnapLen
		}
		l.buf = bufio.NewWriter(w)
		l.writer = pcapgo.NewWriter(l.buf)
		if err := l.writer.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
			return nil, fmt.Errorf("pcapfile: write header: %w", err)
		}
	}
	return l, nil
}

// Receive returns the next frame from the capture, or io.EOF at its end.
func (l *Link) Receive(ctx context.Context) (core.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return core.RawFrame{}, err
	}
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return core.RawFrame{}, core.ErrLinkClosed
	}

	data, ci, err := l.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return core.RawFrame{}, io.EOF
		}
		return core.RawFrame{}, fmt.Errorf("pcapfile: read frame: %w", err)
	}
	return core.RawFrame{
		Data:           data,
		Timestamp:      ci.Timestamp,
		CaptureLen:     uint32(ci.CaptureLength),
		OrigLen:        uint32(ci.Length),
		InterfaceIndex: ci.InterfaceIndex,
	}, nil
}

// Send records frame in the output capture.
func (l *Link) Send(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return core.ErrLinkClosed
	}
	if l.writer == nil {
		return nil
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     l.now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if err := l.writer.WritePacket(ci, frame); err != nil {
		return fmt.Errorf("pcapfile: write frame: %w", err)
	}
	return nil
}

// Close flushes the output capture and closes the files opened by Open.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if l.buf != nil {
		errs = append(errs, l.buf.Flush())
	}
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
