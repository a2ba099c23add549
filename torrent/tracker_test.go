package torrent

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"torrent-client/bencode"
)

func TestParsePeers(t *testing.T) {
	// Peer 1: 192.168.1.1:8080, Peer 2: 10.0.0.1:6881 (S7 compact format)
	peersData := make([]byte, 12)
	peersData[0], peersData[1], peersData[2], peersData[3] = 192, 168, 1, 1
	binary.BigEndian.PutUint16(peersData[4:6], 8080)
	peersData[6], peersData[7], peersData[8], peersData[9] = 10, 0, 0, 1
	binary.BigEndian.PutUint16(peersData[10:12], 6881)

	peers, err := parsePeers(peersData)
	if err != nil {
		t.Fatalf("parsePeers failed: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("Expected 2 peers, got %d", len(peers))
	}

	if !peers[0].IP.Equal(net.IPv4(192, 168, 1, 1)) || peers[0].Port != 8080 {
		t.Errorf("Peer 0: got %s", peers[0])
	}
	if !peers[1].IP.Equal(net.IPv4(10, 0, 0, 1)) || peers[1].Port != 6881 {
		t.Errorf("Peer 1: got %s", peers[1])
	}
}

func TestParsePeersS7(t *testing.T) {
	// S7: \x0A\x00\x00\x01\x1A\xE1 -> 10.0.0.1:6881 (0x1AE1 = 6881)
	data := []byte{0x0A, 0x00, 0x00, 0x01, 0x1A, 0xE1}
	peers, err := parsePeers(data)
	if err != nil {
		t.Fatalf("parsePeers failed: %v", err)
	}
	if len(peers) != 1 || peers[0].String() != "10.0.0.1:6881" {
		t.Errorf("got %v, want 10.0.0.1:6881", peers)
	}
}

func TestParsePeersInvalidLength(t *testing.T) {
	_, err := parsePeers(make([]byte, 5))
	if err == nil {
		t.Error("Expected error for invalid peer data length, got nil")
	}
}

func TestPeerString(t *testing.T) {
	peer := Peer{IP: net.IPv4(192, 168, 1, 100), Port: 6881}
	if got := peer.String(); got != "192.168.1.100:6881" {
		t.Errorf("Peer.String() = %q, want %q", got, "192.168.1.100:6881")
	}
}

func TestParseTrackerResponse(t *testing.T) {
	peersData := []byte{127, 0, 0, 1, 0x1F, 0x90} // 127.0.0.1:8080

	root := bencode.NewDict()
	root.Set([]byte("interval"), bint(1800))
	root.Set([]byte("peers"), bencode.NewString(peersData))

	resp, err := parseTrackerResponse(root)
	if err != nil {
		t.Fatalf("parseTrackerResponse failed: %v", err)
	}
	if resp.Interval != 1800 {
		t.Errorf("Interval = %d, want 1800", resp.Interval)
	}
	if len(resp.Peers) != 1 || resp.Peers[0].String() != "127.0.0.1:8080" {
		t.Errorf("Peers = %v", resp.Peers)
	}
}

func TestParseTrackerResponseFailure(t *testing.T) {
	root := bencode.NewDict()
	root.Set([]byte("failure reason"), bstr("Invalid info_hash"))

	_, err := parseTrackerResponse(root)
	if err == nil {
		t.Fatal("expected a failure error")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("Invalid info_hash")) {
		t.Errorf("error %q does not mention failure reason", err.Error())
	}
}

func TestParseTrackerResponseMissingInterval(t *testing.T) {
	root := bencode.NewDict()
	root.Set([]byte("peers"), bencode.NewString(nil))

	_, err := parseTrackerResponse(root)
	if err != ErrBadInterval {
		t.Errorf("got %v, want ErrBadInterval", err)
	}
}

func TestDecodeIncrementally(t *testing.T) {
	root := bencode.NewDict()
	root.Set([]byte("interval"), bint(900))
	encoded := bencode.Encode(root)

	// Feed the bytes one at a time, the way a slow tracker connection would.
	r := &byteAtATimeReader{data: encoded}
	v, err := decodeIncrementally(r)
	if err != nil {
		t.Fatalf("decodeIncrementally failed: %v", err)
	}
	if !v.Equal(root) {
		t.Errorf("decoded value mismatch: got %+v, want %+v", v, root)
	}
}

// byteAtATimeReader returns one byte per Read call, forcing callers that
// aren't truly incremental to fail.
type byteAtATimeReader struct {
	data []byte
	pos  int
}

func (r *byteAtATimeReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}
