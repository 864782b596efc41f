package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/decoder"
	"firestige.xyz/losenet/internal/core/packet"
	"firestige.xyz/losenet/internal/link/pcapfile"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [capture.pcap]",
	Short: "Decode frames from a pcap file or hex strings",
	Long: `Decode Ethernet frames and print one line (or YAML document) per frame.

Frames come from a pcap capture file or from --hex arguments. Hex may contain
whitespace or ':' separators.

Examples:
  losenet decode capture.pcap
  losenet decode -o yaml capture.pcap
  losenet decode --hex "ffffffffffff 525400123456 0806 ..."`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src frameSource
		switch {
		case len(args) == 1 && len(decodeHex) > 0:
			return errors.New("pass either a capture file or --hex, not both")
		case len(args) == 1:
			l, err := pcapfile.Open(pcapfile.Options{Input: args[0]})
			if err != nil {
				return err
			}
			defer l.Close()
			src = l
		case len(decodeHex) > 0:
			frames, err := parseHexFrames(decodeHex)
			if err != nil {
				return err
			}
			src = frames
		default:
			return errors.New("a capture file or --hex is required")
		}
		return runDecode(cmd.Context(), src, decodeOptions{
			Output:          decodeOutput,
			VerifyChecksums: decodeVerify,
		}, cmd.OutOrStdout())
	},
}

var (
	decodeHex    []string
	decodeOutput string
	decodeVerify bool
)

func init() {
	decodeCmd.Flags().StringArrayVar(&decodeHex, "hex", nil,
		"frame as hex string (repeatable)")
	decodeCmd.Flags().StringVarP(&decodeOutput, "output", "o", outputText,
		"output format: text or yaml")
	decodeCmd.Flags().BoolVar(&decodeVerify, "verify-checksums", false,
		"reject frames with bad IPv4/UDP/TCP checksums")
}

type decodeOptions struct {
	Output          string
	VerifyChecksums bool
}

// frameSource is the receive half of a link.
type frameSource interface {
	Receive(ctx context.Context) (core.RawFrame, error)
}

// hexFrames replays frames given on the command line.
type hexFrames []core.RawFrame

func (h *hexFrames) Receive(ctx context.Context) (core.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return core.RawFrame{}, err
	}
	if len(*h) == 0 {
		return core.RawFrame{}, io.EOF
	}
	f := (*h)[0]
	*h = (*h)[1:]
	return f, nil
}

func parseHexFrames(args []string) (*hexFrames, error) {
	clean := strings.NewReplacer(" ", "", "\t", "", "\n", "", ":", "")
	frames := make(hexFrames, 0, len(args))
	for i, s := range args {
		data, err := hex.DecodeString(clean.Replace(s))
		if err != nil {
			return nil, fmt.Errorf("--hex #%d: %w", i+1, err)
		}
		frames = append(frames, core.RawFrame{
			Data:       data,
			CaptureLen: uint32(len(data)),
			OrigLen:    uint32(len(data)),
		})
	}
	return &frames, nil
}

// runDecode decodes every frame from src and writes one record per frame.
// Undecodable frames are reported inline and do not fail the run.
func runDecode(ctx context.Context, src frameSource, opts decodeOptions, out io.Writer) error {
	if opts.Output != outputText && opts.Output != outputYAML {
		return fmt.Errorf("unknown output format %q (must be text or yaml)", opts.Output)
	}

	dec := decoder.NewStandardDecoder(decoder.Config{VerifyChecksums: opts.VerifyChecksums})
	var enc *yaml.Encoder
	if opts.Output == outputYAML {
		enc = yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
	}

	var total, failed int
	for {
		raw, err := src.Receive(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", total+1, err)
		}
		total++

		pkt, derr := dec.DecodeRaw(raw)
		if derr != nil {
			failed++
		}

		if enc != nil {
			if err := enc.Encode(newFrameRecord(total, raw, pkt, derr)); err != nil {
				return fmt.Errorf("encode frame %d: %w", total, err)
			}
			continue
		}
		if derr != nil {
			fmt.Fprintf(out, "#%d error: %v\n", total, derr)
		} else {
			fmt.Fprintf(out, "#%d %s\n", total, pkt)
		}
	}

	if enc == nil {
		fmt.Fprintf(out, "%d frame(s), %d error(s)\n", total, failed)
	}
	return nil
}

// frameRecord is the YAML form of one decoded frame.
type frameRecord struct {
	Index     int        `yaml:"index"`
	Time      string     `yaml:"time,omitempty"`
	Length    int        `yaml:"length"`
	Kind      string     `yaml:"kind"`
	Error     string     `yaml:"error,omitempty"`
	SrcMAC    string     `yaml:"src_mac,omitempty"`
	DstMAC    string     `yaml:"dst_mac,omitempty"`
	EtherType string     `yaml:"ether_type,omitempty"`
	VLANs     []uint16   `yaml:"vlans,omitempty"`
	ARP       *arpRecord `yaml:"arp,omitempty"`
	IP        *ipRecord  `yaml:"ip,omitempty"`
	UDP       *udpRecord `yaml:"udp,omitempty"`
	TCP       *tcpRecord `yaml:"tcp,omitempty"`
	Payload   int        `yaml:"payload_len"`
}

type arpRecord struct {
	Op        string `yaml:"op"`
	SenderIP  string `yaml:"sender_ip"`
	SenderMAC string `yaml:"sender_mac"`
	TargetIP  string `yaml:"target_ip"`
	TargetMAC string `yaml:"target_mac"`
}

type ipRecord struct {
	Src      string `yaml:"src"`
	Dst      string `yaml:"dst"`
	Protocol string `yaml:"protocol"`
	TTL      uint8  `yaml:"ttl,omitempty"`
}

type udpRecord struct {
	SrcPort uint16 `yaml:"src_port"`
	DstPort uint16 `yaml:"dst_port"`
}

type tcpRecord struct {
	SrcPort uint16 `yaml:"src_port"`
	DstPort uint16 `yaml:"dst_port"`
	Seq     uint32 `yaml:"seq"`
	Ack     uint32 `yaml:"ack"`
	Flags   string `yaml:"flags"`
	Window  uint16 `yaml:"window"`
}

func newFrameRecord(index int, raw core.RawFrame, pkt packet.Packet, err error) frameRecord {
	rec := frameRecord{Index: index, Length: len(raw.Data)}
	if !raw.Timestamp.IsZero() {
		rec.Time = raw.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	}
	if err != nil {
		rec.Kind = "error"
		rec.Error = err.Error()
		return rec
	}
	rec.Kind = pkt.Kind().String()

	switch p := pkt.(type) {
	case *packet.ARPPacket:
		rec.VLANs = p.VLANs
		rec.ARP = &arpRecord{
			Op:        p.Type.String(),
			SenderIP:  p.SenderIP.String(),
			SenderMAC: p.SenderMAC.String(),
			TargetIP:  p.TargetIP.String(),
			TargetMAC: p.TargetMAC.String(),
		}
	case *packet.UDPPacket:
		rec.SrcMAC, rec.DstMAC = p.SourceMAC.String(), p.DestMAC.String()
		rec.VLANs = p.VLANs
		rec.IP = &ipRecord{Src: p.SourceIP.String(), Dst: p.DestIP.String(), Protocol: "UDP"}
		rec.UDP = &udpRecord{SrcPort: p.SourcePort, DstPort: p.DestPort}
		rec.Payload = len(p.Data)
	case *packet.TCPPacket:
		rec.SrcMAC, rec.DstMAC = p.SourceMAC.String(), p.DestMAC.String()
		rec.VLANs = p.VLANs
		rec.IP = &ipRecord{Src: p.SourceIP.String(), Dst: p.DestIP.String(), Protocol: "TCP"}
		rec.TCP = &tcpRecord{
			SrcPort: p.SourcePort,
			DstPort: p.DestPort,
			Seq:     p.Seq,
			Ack:     p.Ack,
			Flags:   p.Flags.String(),
			Window:  p.Window,
		}
		rec.Payload = len(p.Data)
	case *packet.IPv4Packet:
		rec.SrcMAC, rec.DstMAC = p.SourceMAC.String(), p.DestMAC.String()
		rec.VLANs = p.VLANs
		rec.IP = &ipRecord{Src: p.SourceIP.String(), Dst: p.DestIP.String(), Protocol: p.Protocol.String(), TTL: p.TTL}
		rec.Payload = len(p.Data)
	case *packet.Unsupported:
		rec.SrcMAC, rec.DstMAC = p.SourceMAC.String(), p.DestMAC.String()
		rec.VLANs = p.VLANs
		rec.EtherType = p.EtherType.String()
		rec.Payload = len(p.Data)
	}
	return rec
}
