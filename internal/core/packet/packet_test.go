package packet_test

import (
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/core/decoder"
	"firestige.xyz/losenet/internal/core/packet"
)

var (
	localIP  = core.NewIPv4(10, 0, 2, 2)
	localMAC = core.MacAddress{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	peerIP   = core.NewIPv4(10, 0, 2, 15)
	peerMAC  = core.MacAddress{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}
)

// reserialize re-encodes the layers gopacket decoded from frame with
// checksums and lengths recomputed by gopacket. Ethernet serialization pads
// to the 60-byte minimum, so callers compare a prefix.
func reserialize(t *testing.T, pkt gopacket.Packet) []byte {
	t.Helper()
	var ls []gopacket.SerializableLayer
	var ip4 *layers.IPv4
	for _, l := range pkt.Layers() {
		switch l := l.(type) {
		case *layers.Ethernet:
			ls = append(ls, l)
		case *layers.ARP:
			ls = append(ls, l)
		case *layers.IPv4:
			ip4 = l
			ls = append(ls, l)
		case *layers.UDP:
			require.NoError(t, l.SetNetworkLayerForChecksum(ip4))
			ls = append(ls, l)
		case *layers.TCP:
			require.NoError(t, l.SetNetworkLayerForChecksum(ip4))
			ls = append(ls, l)
		}
	}
	if app := pkt.ApplicationLayer(); app != nil {
		ls = append(ls, gopacket.Payload(app.Payload()))
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func parse(t *testing.T, data []byte) gopacket.Packet {
	t.Helper()
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	require.Nil(t, pkt.ErrorLayer(), "gopacket failed to decode frame")
	return pkt
}

func TestARPBuildData(t *testing.T) {
	req := packet.NewARPPacket(peerIP, peerMAC, localIP, core.MacAddress{}, packet.ARPRequest)
	reply, err := req.ReplyPacket(localIP, localMAC)
	require.NoError(t, err)

	data, err := reply.BuildData()
	require.NoError(t, err)
	require.Len(t, data, packet.ARPFrameLen)

	pkt := parse(t, data)
	eth := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	assert.Equal(t, core.Broadcast[:], []byte(eth.DstMAC))
	assert.Equal(t, localMAC[:], []byte(eth.SrcMAC))
	assert.Equal(t, layers.EthernetTypeARP, eth.EthernetType)

	arp := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
	assert.Equal(t, layers.LinkTypeEthernet, arp.AddrType)
	assert.Equal(t, layers.EthernetTypeIPv4, arp.Protocol)
	assert.Equal(t, uint8(6), arp.HwAddressSize)
	assert.Equal(t, uint8(4), arp.ProtAddressSize)
	assert.Equal(t, uint16(layers.ARPReply), arp.Operation)
	assert.Equal(t, localMAC[:], arp.SourceHwAddress)
	assert.Equal(t, localIP[:], arp.SourceProtAddress)
	assert.Equal(t, peerMAC[:], arp.DstHwAddress)
	assert.Equal(t, peerIP[:], arp.DstProtAddress)

	assert.Equal(t, data, reserialize(t, pkt)[:len(data)])
}

func TestARPReplyPacketRequiresRequest(t *testing.T) {
	for _, typ := range []packet.ARPType{packet.ARPReply, packet.ARPUnsupported} {
		p := packet.NewARPPacket(peerIP, peerMAC, localIP, localMAC, typ)
		_, err := p.ReplyPacket(localIP, localMAC)
		assert.ErrorIs(t, err, core.ErrNotARPRequest, typ.String())
	}
}

func TestARPTypeOp(t *testing.T) {
	assert.Equal(t, uint16(1), packet.ARPRequest.Op())
	assert.Equal(t, uint16(2), packet.ARPReply.Op())
	assert.Equal(t, uint16(0), packet.ARPUnsupported.Op())
	for _, typ := range []packet.ARPType{packet.ARPRequest, packet.ARPReply} {
		assert.Equal(t, typ, packet.ARPTypeFromOp(typ.Op()))
	}
	assert.Equal(t, packet.ARPUnsupported, packet.ARPTypeFromOp(9))
}

func TestUDPReplyBuildData(t *testing.T) {
	in := &packet.UDPPacket{
		SourceIP: peerIP, DestIP: localIP, SourceMAC: peerMAC, DestMAC: localMAC,
		SourcePort: 40000, DestPort: 2000, Data: []byte("this is a ping!"),
	}
	reply := in.Reply([]byte("reply"))

	assert.Equal(t, localIP, reply.SourceIP)
	assert.Equal(t, peerIP, reply.DestIP)
	assert.Equal(t, localMAC, reply.SourceMAC)
	assert.Equal(t, peerMAC, reply.DestMAC)
	assert.Equal(t, uint16(2000), reply.SourcePort)
	assert.Equal(t, uint16(40000), reply.DestPort)
	assert.Equal(t, 5, reply.DataLen())

	data, err := reply.BuildData()
	require.NoError(t, err)
	require.Len(t, data, 14+20+8+5)

	pkt := parse(t, data)
	ip := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	assert.Equal(t, uint8(4), ip.Version)
	assert.Equal(t, uint8(64), ip.TTL)
	assert.Equal(t, layers.IPProtocolUDP, ip.Protocol)
	assert.Equal(t, layers.IPv4DontFragment, ip.Flags)
	assert.Equal(t, uint16(33), ip.Length)

	udp := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	assert.Equal(t, layers.UDPPort(2000), udp.SrcPort)
	assert.Equal(t, layers.UDPPort(40000), udp.DstPort)
	assert.Equal(t, uint16(13), udp.Length)
	assert.NotZero(t, udp.Checksum)
	assert.Equal(t, "reply", string(udp.Payload))

	// Byte-identical to gopacket's own encoding with freshly computed checksums.
	assert.Equal(t, data, reserialize(t, pkt)[:len(data)])
}

func TestTCPDerivedPackets(t *testing.T) {
	syn := &packet.TCPPacket{
		SourceIP: peerIP, DestIP: localIP, SourceMAC: peerMAC, DestMAC: localMAC,
		SourcePort: 49152, DestPort: 80, Seq: 1000, Flags: core.FlagSYN, Window: 1024,
	}

	t.Run("SynAck", func(t *testing.T) {
		r := syn.SynAck(5000)
		assert.True(t, r.Flags.Contains(core.FlagSYN|core.FlagACK))
		assert.Equal(t, uint32(5000), r.Seq)
		assert.Equal(t, uint32(1001), r.Ack)
		assert.Equal(t, localIP, r.SourceIP)
		assert.Equal(t, uint16(80), r.SourcePort)
		assert.Empty(t, r.Data)
	})

	data := &packet.TCPPacket{
		SourceIP: peerIP, DestIP: localIP, SourceMAC: peerMAC, DestMAC: localMAC,
		SourcePort: 49152, DestPort: 80, Seq: 1001, Ack: 5001, Flags: core.FlagACK | core.FlagPSH,
		Data: []byte("GET / HTTP/1.1\r\n"),
	}

	t.Run("AckCoversPayload", func(t *testing.T) {
		r := data.AckPacket()
		assert.Equal(t, core.FlagACK, r.Flags)
		assert.Equal(t, uint32(5001), r.Seq)
		assert.Equal(t, uint32(1001+16), r.Ack)
		assert.Equal(t, uint16(0xFFFF), r.Window)
		assert.Empty(t, r.Data)
	})

	t.Run("Reply", func(t *testing.T) {
		r := data.Reply([]byte("HTTP/1.1 200 OK\r\n\r\n"))
		assert.Equal(t, core.FlagACK|core.FlagPSH, r.Flags)
		assert.Equal(t, uint32(1017), r.Ack)
		assert.Equal(t, 19, r.DataLen())
	})

	fin := &packet.TCPPacket{
		SourceIP: peerIP, DestIP: localIP, SourceMAC: peerMAC, DestMAC: localMAC,
		SourcePort: 49152, DestPort: 80, Seq: 1017, Ack: 5020, Flags: core.FlagFIN | core.FlagACK,
	}

	t.Run("FinSequence", func(t *testing.T) {
		first, second := fin.AckPacket(), fin.FinAck()
		assert.Equal(t, core.FlagACK, first.Flags)
		assert.False(t, first.Flags.Contains(core.FlagFIN))
		assert.Equal(t, uint32(1018), first.Ack)
		assert.True(t, second.Flags.Contains(core.FlagFIN|core.FlagACK))
		assert.Equal(t, first.Seq, second.Seq)
		assert.Equal(t, first.Ack, second.Ack)
	})

	t.Run("Wraparound", func(t *testing.T) {
		p := *syn
		p.Seq = 0xFFFFFFFF
		assert.Equal(t, uint32(0), p.SynAck(1).Ack)
	})
}

func TestTCPBuildData(t *testing.T) {
	seg := &packet.TCPPacket{
		SourceIP: localIP, DestIP: peerIP, SourceMAC: localMAC, DestMAC: peerMAC,
		SourcePort: 80, DestPort: 49152, Seq: 5001, Ack: 1017,
		Flags: core.FlagACK | core.FlagPSH, Window: 4096, Data: []byte("hello"),
	}
	data, err := seg.BuildData()
	require.NoError(t, err)
	require.Len(t, data, 14+20+20+5)

	pkt := parse(t, data)
	tcp := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP)
	assert.Equal(t, layers.TCPPort(80), tcp.SrcPort)
	assert.Equal(t, layers.TCPPort(49152), tcp.DstPort)
	assert.Equal(t, uint32(5001), tcp.Seq)
	assert.Equal(t, uint32(1017), tcp.Ack)
	assert.Equal(t, uint8(5), tcp.DataOffset)
	assert.True(t, tcp.ACK)
	assert.True(t, tcp.PSH)
	assert.False(t, tcp.SYN || tcp.FIN || tcp.RST || tcp.URG)
	assert.Equal(t, uint16(4096), tcp.Window)
	assert.Equal(t, "hello", string(tcp.Payload))

	assert.Equal(t, data, reserialize(t, pkt)[:len(data)])
}

func TestEncodeErrors(t *testing.T) {
	udp := &packet.UDPPacket{SourceIP: localIP, DestIP: peerIP, Data: make([]byte, 70000)}
	_, err := udp.BuildData()
	assert.ErrorIs(t, err, core.ErrPayloadTooBig)

	tcp := &packet.TCPPacket{SourceIP: localIP, DestIP: peerIP, Data: []byte("x")}
	_, err = tcp.EncodeTo(make([]byte, tcp.Len()-1))
	assert.ErrorIs(t, err, core.ErrPacketTooShort)

	arp := packet.NewARPPacket(localIP, localMAC, peerIP, peerMAC, packet.ARPReply)
	_, err = arp.EncodeTo(make([]byte, 41))
	assert.ErrorIs(t, err, core.ErrPacketTooShort)
}

func TestEncodeToReusesBuffer(t *testing.T) {
	buf := make([]byte, 1514)
	p := &packet.UDPPacket{SourceIP: localIP, DestIP: peerIP, SourcePort: 1, DestPort: 2, Data: []byte("abc")}

	n, err := p.EncodeTo(buf)
	require.NoError(t, err)
	assert.Equal(t, p.Len(), n)

	built, err := p.BuildData()
	require.NoError(t, err)
	assert.Equal(t, built, buf[:n])
}

func TestRoundTrip(t *testing.T) {
	d := decoder.NewStandardDecoder(decoder.Config{VerifyChecksums: true})

	packets := []interface {
		packet.Packet
		packet.Encoder
	}{
		packet.NewARPPacket(peerIP, peerMAC, localIP, core.MacAddress{}, packet.ARPRequest),
		packet.NewARPPacket(localIP, localMAC, peerIP, peerMAC, packet.ARPReply),
		&packet.UDPPacket{
			SourceIP: peerIP, DestIP: localIP, SourceMAC: peerMAC, DestMAC: localMAC,
			SourcePort: 5353, DestPort: 9, Data: []byte{0x00, 0x01, 0x02},
		},
		&packet.TCPPacket{
			SourceIP: peerIP, DestIP: localIP, SourceMAC: peerMAC, DestMAC: localMAC,
			SourcePort: 1234, DestPort: 80, Seq: 7, Ack: 9, Flags: core.FlagSYN | core.FlagACK,
			Window: 512, Data: []byte("payload"),
		},
	}

	for _, want := range packets {
		t.Run(want.Kind().String(), func(t *testing.T) {
			data, err := want.BuildData()
			require.NoError(t, err)
			got, err := d.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func dot1qLayers(pkt gopacket.Packet) []*layers.Dot1Q {
	var tags []*layers.Dot1Q
	for _, l := range pkt.Layers() {
		if q, ok := l.(*layers.Dot1Q); ok {
			tags = append(tags, q)
		}
	}
	return tags
}

func TestVLANTaggedReplies(t *testing.T) {
	d := decoder.NewStandardDecoder(decoder.Config{VerifyChecksums: true})

	t.Run("ARP", func(t *testing.T) {
		req := packet.NewARPPacket(peerIP, peerMAC, localIP, core.MacAddress{}, packet.ARPRequest)
		req.VLANs = []uint16{42}
		reply, err := req.ReplyPacket(localIP, localMAC)
		require.NoError(t, err)
		assert.Equal(t, []uint16{42}, reply.VLANs)
		assert.Equal(t, packet.ARPFrameLen+4, reply.Len())

		data, err := reply.BuildData()
		require.NoError(t, err)
		require.Len(t, data, packet.ARPFrameLen+4)

		pkt := parse(t, data)
		eth := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
		assert.Equal(t, layers.EthernetTypeDot1Q, eth.EthernetType)
		tags := dot1qLayers(pkt)
		require.Len(t, tags, 1)
		assert.Equal(t, uint16(42), tags[0].VLANIdentifier)
		assert.Equal(t, layers.EthernetTypeARP, tags[0].Type)
		require.NotNil(t, pkt.Layer(layers.LayerTypeARP))

		got, err := d.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, reply, got)
	})

	t.Run("QinQUDP", func(t *testing.T) {
		in := &packet.UDPPacket{
			SourceIP: peerIP, DestIP: localIP, SourceMAC: peerMAC, DestMAC: localMAC,
			VLANs:      []uint16{100, 200},
			SourcePort: 40000, DestPort: 7, Data: []byte("ping"),
		}
		reply := in.Reply([]byte("pong"))
		assert.Equal(t, []uint16{100, 200}, reply.VLANs)
		assert.Equal(t, 14+8+20+8+4, reply.Len())

		data, err := reply.BuildData()
		require.NoError(t, err)
		require.Len(t, data, reply.Len())

		pkt := parse(t, data)
		eth := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
		assert.Equal(t, layers.EthernetTypeQinQ, eth.EthernetType)
		tags := dot1qLayers(pkt)
		require.Len(t, tags, 2)
		assert.Equal(t, uint16(100), tags[0].VLANIdentifier)
		assert.Equal(t, layers.EthernetTypeDot1Q, tags[0].Type)
		assert.Equal(t, uint16(200), tags[1].VLANIdentifier)
		assert.Equal(t, layers.EthernetTypeIPv4, tags[1].Type)
		udp := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		assert.Equal(t, []byte("pong"), udp.Payload)

		got, err := d.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, reply, got)
	})

	t.Run("TCPFinAck", func(t *testing.T) {
		fin := &packet.TCPPacket{
			SourceIP: peerIP, DestIP: localIP, SourceMAC: peerMAC, DestMAC: localMAC,
			VLANs:      []uint16{7},
			SourcePort: 49152, DestPort: 80, Seq: 10, Ack: 20, Flags: core.FlagFIN | core.FlagACK,
		}
		for _, r := range []*packet.TCPPacket{fin.AckPacket(), fin.FinAck()} {
			assert.Equal(t, []uint16{7}, r.VLANs)
			data, err := r.BuildData()
			require.NoError(t, err)
			tags := dot1qLayers(parse(t, data))
			require.Len(t, tags, 1)
			assert.Equal(t, uint16(7), tags[0].VLANIdentifier)
		}
	})
}
