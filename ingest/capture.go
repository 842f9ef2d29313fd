package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var httpMethods = []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS", "PATCH", "TRACE", "CONNECT"}

// NormalizeCapture extracts HTTP requests from a pcap file. Only
// packets carrying a parseable request line and a Host header become
// records; everything else (non-TCP traffic, responses, continuation
// segments) is silently skipped. Processed counts parsed requests, not
// packets, so a capture full of irrelevant traffic yields zero.
func NormalizeCapture(r io.Reader) (*NormalizeResult, error) {
	pr, err := pcapgo.NewReader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("%w: pcap header: %v", ErrUnparseable, err)
	}

	res := &NormalizeResult{}
	for {
		data, ci, err := pr.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Truncated tail: keep what we parsed so far.
			break
		}

		pkt := gopacket.NewPacket(data, pr.LinkType(), gopacket.Default)
		rec, ok := requestFromPacket(pkt, ci.Timestamp)
		if !ok {
			continue
		}
		res.Processed++
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func requestFromPacket(pkt gopacket.Packet, ts time.Time) (Record, bool) {
	netLayer := pkt.NetworkLayer()
	if netLayer == nil {
		return Record{}, false
	}
	if tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP); !ok || tcp == nil {
		return Record{}, false
	}
	app := pkt.ApplicationLayer()
	if app == nil {
		return Record{}, false
	}

	target, host, ok := parseHTTPRequest(app.Payload())
	if !ok {
		return Record{}, false
	}

	return Record{
		URL:       host + target,
		SourceIP:  netLayer.NetworkFlow().Src().String(),
		Timestamp: ts.UTC().Format(time.RFC3339),
	}, true
}

// parseHTTPRequest pulls the request target and Host header out of a
// TCP payload. Both are required: without a Host the reassembled URL
// would be ambiguous across virtual hosts.
func parseHTTPRequest(payload []byte) (target, host string, ok bool) {
	lineEnd := bytes.IndexByte(payload, '\n')
	if lineEnd < 0 {
		return "", "", false
	}
	requestLine := strings.TrimRight(string(payload[:lineEnd]), "\r")

	parts := strings.SplitN(requestLine, " ", 3)
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/") {
		return "", "", false
	}
	method := parts[0]
	valid := false
	for _, m := range httpMethods {
		if method == m {
			valid = true
			break
		}
	}
	if !valid || parts[1] == "" {
		return "", "", false
	}
	target = parts[1]

	for _, line := range strings.Split(string(payload[lineEnd+1:]), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			break // end of headers
		}
		name, value, found := strings.Cut(line, ":")
		if found && strings.EqualFold(strings.TrimSpace(name), "Host") {
			host = strings.TrimSpace(value)
			break
		}
	}
	if host == "" {
		return "", "", false
	}
	return target, host, true
}
