package peer

import (
	"errors"
	"io"
)

// Pstr is the protocol identifier carried in every handshake (§3, §6).
const Pstr = "BitTorrent protocol"

// HandshakeLen is the fixed 68-byte frame length (§3): 1 + 19 + 8 + 20 + 20.
const HandshakeLen = 1 + len(Pstr) + 8 + 20 + 20

// ErrBadHandshake is Protocol-kind per §7: pstrlen or the protocol string
// did not match what §4.8 requires.
var ErrBadHandshake = errors.New("peer: invalid handshake (bad pstrlen or protocol string)")

// Handshake is the 68-byte record opening a peer connection (§3, §4.8).
// Reserved is always eight zero bytes in this client — extensions (BEP-10)
// are never advertised (§9).
type Handshake struct {
	Pstr     string
	Reserved [8]byte
	InfoHash [20]byte
	PeerID   [20]byte
}

// NewHandshake builds a local handshake for the given torrent and client
// identity, with all reserved bits clear.
func NewHandshake(infoHash, peerID [20]byte) *Handshake {
	return &Handshake{
		Pstr:     Pstr,
		InfoHash: infoHash,
		PeerID:   peerID,
	}
}

// Serialize produces the exact 68-byte wire form of h.
func (h *Handshake) Serialize() []byte {
	buf := make([]byte, HandshakeLen)
	buf[0] = byte(len(Pstr))
	pos := 1
	pos += copy(buf[pos:], Pstr)
	pos += copy(buf[pos:], h.Reserved[:])
	pos += copy(buf[pos:], h.InfoHash[:])
	copy(buf[pos:], h.PeerID[:])
	return buf
}

// ReadHandshake reads exactly HandshakeLen bytes from r and validates
// pstrlen and the protocol string (§4.8 step 4). The reserved bytes and
// info_hash are returned as-is, without comparison — callers that care
// whether the remote's info_hash matches their own compare it themselves.
func ReadHandshake(r io.Reader) (*Handshake, error) {
	buf := make([]byte, HandshakeLen)
	if err := readExactly(r, buf); err != nil {
		return nil, err
	}

	pstrlen := int(buf[0])
	if pstrlen != len(Pstr) {
		return nil, ErrBadHandshake
	}

	h := &Handshake{Pstr: string(buf[1 : 1+pstrlen])}
	if h.Pstr != Pstr {
		return nil, ErrBadHandshake
	}

	pos := 1 + pstrlen
	copy(h.Reserved[:], buf[pos:pos+8])
	pos += 8
	copy(h.InfoHash[:], buf[pos:pos+20])
	pos += 20
	copy(h.PeerID[:], buf[pos:pos+20])

	return h, nil
}

// readExactly loops on Read until buf is full or an error occurs. A short
// read is not an error; EOF before buf is full is (io.EOF when nothing was
// read, io.ErrUnexpectedEOF otherwise) (§4.9).
func readExactly(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
