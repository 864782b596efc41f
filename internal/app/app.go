// Package app holds the handlers the responder hands traffic to.
package app

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"firestige.xyz/losenet/internal/core/packet"
	"firestige.xyz/losenet/internal/log"
)

const (
	PingRequest = "this is a ping!"
	PingReply   = "reply"

	ClosePath = "/close"
)

// Ping answers the demo ping datagram once and stops the responder.
type Ping struct{}

func (Ping) HandleUDP(p *packet.UDPPacket) ([]byte, bool) {
	if string(p.Data) != PingRequest {
		return nil, false
	}
	log.GetLogger().Infof("ping from %s:%d", p.SourceIP, p.SourcePort)
	return []byte(PingReply), true
}

// Echo returns every datagram payload unchanged.
type Echo struct{}

func (Echo) HandleUDP(p *packet.UDPPacket) ([]byte, bool) {
	return append([]byte{}, p.Data...), false
}

//go:embed index.html
var defaultPage []byte

// HTTP serves one page to GET requests. GET /close is acknowledged and
// stops the responder. Anything else is acknowledged without data.
type HTTP struct {
	response []byte
}

// NewHTTP builds the response for page; nil serves the built-in page.
func NewHTTP(page []byte) *HTTP {
	if page == nil {
		page = defaultPage
	}
	var b bytes.Buffer
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("Content-Type: text/html\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(page))
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.Write(page)
	return &HTTP{response: b.Bytes()}
}

// LoadHTTP reads the page from path; an empty path serves the built-in page.
func LoadHTTP(path string) (*HTTP, error) {
	if path == "" {
		return NewHTTP(nil), nil
	}
	page, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("http page: %w", err)
	}
	return NewHTTP(page), nil
}

func (h *HTTP) HandleTCP(p *packet.TCPPacket) ([]byte, bool) {
	target, ok := requestTarget(p.Data)
	if !ok {
		return nil, false
	}
	log.GetLogger().Infof("request for %s from %s:%d", target, p.SourceIP, p.SourcePort)
	if target == ClosePath {
		return nil, true
	}
	return h.response, false
}

// requestTarget extracts the request target of a GET request line.
func requestTarget(data []byte) (string, bool) {
	rest, ok := bytes.CutPrefix(data, []byte("GET "))
	if !ok {
		return "", false
	}
	if i := bytes.IndexAny(rest, " \r\n"); i >= 0 {
		rest = rest[:i]
	}
	if len(rest) == 0 {
		return "", false
	}
	return string(rest), true
}
