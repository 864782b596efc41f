package cmd

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/packet"
	"firestige.xyz/losenet/internal/link/pcapfile"
)

var (
	localIP   = core.NewIPv4(10, 0, 0, 1)
	localMAC  = core.MacAddress{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}
	remoteIP  = core.NewIPv4(10, 0, 0, 2)
	remoteMAC = core.MacAddress{0x52, 0x54, 0x00, 0xab, 0xcd, 0xef}
)

func mustBuild(t *testing.T, e packet.Encoder) []byte {
	t.Helper()
	data, err := e.BuildData()
	require.NoError(t, err)
	return data
}

func arpRequestFrame(t *testing.T) []byte {
	return mustBuild(t, packet.NewARPPacket(remoteIP, remoteMAC, localIP, core.MacAddress{}, packet.ARPRequest))
}

func udpFrame(t *testing.T, payload string) []byte {
	return mustBuild(t, &packet.UDPPacket{
		SourceIP: remoteIP, DestIP: localIP,
		SourceMAC: remoteMAC, DestMAC: localMAC,
		SourcePort: 40000, DestPort: 7,
		Data: []byte(payload),
	})
}

func tcpFrame(t *testing.T, flags core.TCPFlags, seq uint32) []byte {
	return mustBuild(t, &packet.TCPPacket{
		SourceIP: remoteIP, DestIP: localIP,
		SourceMAC: remoteMAC, DestMAC: localMAC,
		SourcePort: 50000, DestPort: 80,
		Seq: seq, Flags: flags, Window: 1024,
	})
}

func capture(t *testing.T, frames ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, f := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(f),
			Length:        len(f),
		}
		require.NoError(t, w.WritePacket(ci, f))
	}
	return buf.Bytes()
}

func TestRunDecode_Text(t *testing.T) {
	frames, err := parseHexFrames([]string{
		hex.EncodeToString(arpRequestFrame(t)),
		hex.EncodeToString(udpFrame(t, "this is a ping!")),
		"0102",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = runDecode(context.Background(), frames, decodeOptions{Output: outputText}, &buf)

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "#1 ARP request 10.0.0.2")
	assert.Contains(t, out, "#2 UDP 10.0.0.2:40000")
	assert.Contains(t, out, "#3 error:")
	assert.Contains(t, out, "3 frame(s), 1 error(s)")
}

func TestRunDecode_YAMLFromCapture(t *testing.T) {
	l, err := pcapfile.New(bytes.NewReader(capture(t,
		arpRequestFrame(t),
		tcpFrame(t, core.FlagSYN, 1000),
	)), nil, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = runDecode(context.Background(), l, decodeOptions{Output: outputYAML}, &buf)
	require.NoError(t, err)

	dec := yaml.NewDecoder(&buf)
	var arp frameRecord
	require.NoError(t, dec.Decode(&arp))
	assert.Equal(t, 1, arp.Index)
	assert.Equal(t, "arp", arp.Kind)
	assert.Equal(t, "2024-05-01T12:00:00.000000Z", arp.Time)
	require.NotNil(t, arp.ARP)
	assert.Equal(t, "request", arp.ARP.Op)
	assert.Equal(t, "10.0.0.1", arp.ARP.TargetIP)

	var syn frameRecord
	require.NoError(t, dec.Decode(&syn))
	assert.Equal(t, "tcp", syn.Kind)
	require.NotNil(t, syn.IP)
	assert.Equal(t, "10.0.0.2", syn.IP.Src)
	require.NotNil(t, syn.TCP)
	assert.Equal(t, uint32(1000), syn.TCP.Seq)
	assert.Equal(t, "SYN", syn.TCP.Flags)
	assert.Equal(t, uint16(80), syn.TCP.DstPort)

	var extra frameRecord
	assert.ErrorIs(t, dec.Decode(&extra), io.EOF)
}

func TestRunDecode_VLANTagged(t *testing.T) {
	req := packet.NewARPPacket(remoteIP, remoteMAC, localIP, core.MacAddress{}, packet.ARPRequest)
	req.VLANs = []uint16{10, 20}
	frames := hexFrames{{Data: mustBuild(t, req)}}

	var buf bytes.Buffer
	require.NoError(t, runDecode(context.Background(), &frames, decodeOptions{Output: outputYAML}, &buf))

	var rec frameRecord
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "arp", rec.Kind)
	assert.Equal(t, []uint16{10, 20}, rec.VLANs)
	assert.Equal(t, 50, rec.Length)
}

func TestRunDecode_YAMLError(t *testing.T) {
	frames, err := parseHexFrames([]string{"ff ff ff"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runDecode(context.Background(), frames, decodeOptions{Output: outputYAML}, &buf))

	var rec frameRecord
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "error", rec.Kind)
	assert.Equal(t, 3, rec.Length)
	assert.NotEmpty(t, rec.Error)
}

func TestRunDecode_VerifyChecksums(t *testing.T) {
	frame := udpFrame(t, "payload")
	frame[len(frame)-1] ^= 0xFF
	frames := hexFrames{{Data: frame}}

	var buf bytes.Buffer
	err := runDecode(context.Background(), &frames, decodeOptions{Output: outputText, VerifyChecksums: true}, &buf)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "1 frame(s), 1 error(s)")
}

func TestRunDecode_UnknownOutput(t *testing.T) {
	frames := hexFrames{}
	err := runDecode(context.Background(), &frames, decodeOptions{Output: "json"}, io.Discard)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

type failingSource struct{}

func (failingSource) Receive(context.Context) (core.RawFrame, error) {
	return core.RawFrame{}, errors.New("device gone")
}

func TestRunDecode_SourceError(t *testing.T) {
	err := runDecode(context.Background(), failingSource{}, decodeOptions{Output: outputText}, io.Discard)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "device gone")
}

func TestParseHexFrames(t *testing.T) {
	frames, err := parseHexFrames([]string{"01:02:03", "0a 0b\n0c"})
	require.NoError(t, err)
	require.Len(t, *frames, 2)
	assert.Equal(t, []byte{1, 2, 3}, (*frames)[0].Data)
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c}, (*frames)[1].Data)
	assert.Equal(t, uint32(3), (*frames)[1].OrigLen)

	_, err = parseHexFrames([]string{"0g"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--hex #1")
}

func TestHexFramesHonorsContext(t *testing.T) {
	frames := hexFrames{{Data: []byte{1}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := frames.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
