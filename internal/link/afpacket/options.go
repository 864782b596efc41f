// Package afpacket is a live Linux raw-socket link built on a TPACKET_V3 ring.
package afpacket

import (
	"fmt"
	"time"

	"golang.org/x/net/bpf"
)

const Name = "afpacket"

type Options struct {
	Device       string        `mapstructure:"device"`
	SnapLen      int           `mapstructure:"snap_len"`
	BufferSizeMB int           `mapstructure:"buffer_size_mb"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	// Filter installs a kernel filter passing only ARP and IPv4 frames.
	Filter bool `mapstructure:"filter"`
}

func defaultOptions() Options {
	return Options{
		SnapLen:      1600,
		BufferSizeMB: 2,
		PollTimeout:  100 * time.Millisecond,
		Filter:       true,
	}
}

func (o Options) validate() error {
	if o.Device == "" {
		return fmt.Errorf("afpacket: device is required")
	}
	if o.PollTimeout <= 0 {
		return fmt.Errorf("afpacket: poll_timeout must be positive, got %s", o.PollTimeout)
	}
	return nil
}

// filterProgram accepts Ethernet II frames carrying ARP or IPv4, truncated to snapLen.
func filterProgram(snapLen int) ([]bpf.RawInstruction, error) {
	return bpf.Assemble([]bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},                        // EtherType
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x0806, SkipTrue: 2}, // ARP
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x0800, SkipTrue: 1}, // IPv4
		bpf.RetConstant{Val: 0},                                   // drop
		bpf.RetConstant{Val: uint32(snapLen)},                     // accept
	})
}

// recomputeSize derives TPACKET_V3 ring geometry for a target buffer size.
//
// PACKET_MMAP requires:
//  1. frameSize is a multiple of TPACKET_ALIGNMENT (16 bytes)
//  2. blockSize is a multiple of pageSize
//  3. blockSize is a multiple of frameSize
//  4. blockSize * numBlocks approximates ringBufferSizeMB
func recomputeSize(ringBufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	const tpacketAlignment = 16 // TPACKET_ALIGNMENT for AF_PACKET
	const tpacketHdrLen = 52    // TPACKET3_HDRLEN (approximate)

	if ringBufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("ringBufferSizeMB must be positive, got %d", ringBufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snapLen must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("pageSize must be positive and multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	targetBytes := ringBufferSizeMB * 1024 * 1024

	rawFrameSize := tpacketHdrLen + snapLen
	frameSize = ((rawFrameSize + tpacketAlignment - 1) / tpacketAlignment) * tpacketAlignment

	minBlockSize := pageSize
	if minBlockSize < frameSize {
		minBlockSize = frameSize
	}

	blockSize = lcm(pageSize, frameSize)

	maxBlockSize := 4 * 1024 * 1024
	if blockSize < minBlockSize {
		blockSize = minBlockSize
	}
	if blockSize > maxBlockSize {
		blockSize = (maxBlockSize / pageSize) * pageSize
	}

	if blockSize%frameSize != 0 {
		framesPerBlock := blockSize / frameSize
		if framesPerBlock < 1 {
			framesPerBlock = 1
		}
		blockSize = framesPerBlock * frameSize
		blockSize = ((blockSize + pageSize - 1) / pageSize) * pageSize
	}

	// Count blocks only once blockSize is final, so clamping and page
	// rounding above are reflected in the ring size.
	numBlocks = targetBytes / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}

	return frameSize, blockSize, numBlocks, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return (a * b) / gcd(a, b)
}
