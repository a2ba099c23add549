// Package torrent builds a structured torrent model from a metainfo
// dictionary (§4.4), derives its infohash (§4.5), and implements the
// tracker GET request and compact peer list parsing (§4.6, §4.7).
package torrent

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"torrent-client/bencode"
)

// Errors surfaced by Open/Parse — all Schema-kind per §7: a required key
// is missing, present with the wrong bencode kind, or holds an invalid
// value (negative length, non-positive piece length, a pieces string that
// is empty or not a multiple of 20 bytes).
var (
	ErrMissingAnnounce = errors.New("torrent: missing or invalid announce URL")
	ErrMissingInfo     = errors.New("torrent: missing or invalid info dictionary")
	ErrMissingName     = errors.New("torrent: missing or invalid name")
	ErrMissingLength   = errors.New("torrent: missing or invalid length")
	ErrMissingPieceLen = errors.New("torrent: missing or invalid piece length")
	ErrMissingPieces   = errors.New("torrent: missing or invalid pieces")
	ErrBadPiecesLength = errors.New("torrent: invalid pieces length (must be multiple of 20)")
	ErrNoPieces        = errors.New("torrent: pieces string is empty")
)

// TorrentFile is the structured metainfo model (§3): total size, piece
// layout, and the announce URL used to discover peers.
type TorrentFile struct {
	Announce string
	InfoHash [20]byte
	Info     bencode.Value // the raw info dictionary, retained for re-encoding
	Name     string
	Length   int
	PieceLen int
	Pieces   []Piece
}

// Open reads a metainfo file from disk or, if path is an http(s) URL,
// downloads it, then parses it.
func Open(path string) (*TorrentFile, error) {
	var data []byte
	var err error

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		data, err = downloadFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read torrent file: %w", err)
	}

	return Parse(data)
}

func downloadFile(urlStr string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to download torrent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// Parse decodes bencoded metainfo bytes into a TorrentFile, computing the
// infohash from the exact bytes of the re-encoded info subtree (§4.5).
func Parse(data []byte) (*TorrentFile, error) {
	root, n, err := bencode.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode torrent: %w", err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("torrent: %d trailing bytes after metainfo", len(data)-n)
	}
	if root.Kind != bencode.KindDict {
		return nil, errors.New("torrent: metainfo must be a dictionary")
	}

	announce, ok := root.GetString("announce")
	if !ok {
		return nil, ErrMissingAnnounce
	}

	info, ok := root.GetDict("info")
	if !ok {
		return nil, ErrMissingInfo
	}

	tf, err := parseInfo(info)
	if err != nil {
		return nil, err
	}
	tf.Announce = string(announce)
	tf.Info = info
	tf.InfoHash = computeInfoHash(info)

	return tf, nil
}

// computeInfoHash is §4.5: SHA-1 of the encoder's output for the info
// subtree. Because Encode is byte-exact on any tree the decoder produced
// (P1), this is deterministic and matches whatever bytes the tracker
// expects, independent of incidental whitespace (bencode has none) in the
// source file.
func computeInfoHash(info bencode.Value) [20]byte {
	return sha1.Sum(bencode.Encode(info))
}

func parseInfo(info bencode.Value) (*TorrentFile, error) {
	name, ok := info.GetString("name")
	if !ok {
		return nil, ErrMissingName
	}

	length, ok := info.GetInt("length")
	if !ok || length < 0 {
		return nil, ErrMissingLength
	}

	pieceLength, ok := info.GetInt("piece length")
	if !ok || pieceLength <= 0 {
		return nil, ErrMissingPieceLen
	}

	piecesRaw, ok := info.GetString("pieces")
	if !ok {
		return nil, ErrMissingPieces
	}
	if len(piecesRaw)%20 != 0 {
		return nil, ErrBadPiecesLength
	}
	if len(piecesRaw) == 0 {
		return nil, ErrNoPieces
	}

	numPieces := len(piecesRaw) / 20
	hashes := make([][20]byte, numPieces)
	for i := 0; i < numPieces; i++ {
		copy(hashes[i][:], piecesRaw[i*20:(i+1)*20])
	}

	return &TorrentFile{
		Name:     string(name),
		Length:   int(length),
		PieceLen: int(pieceLength),
		Pieces:   newPieces(int(length), int(pieceLength), hashes),
	}, nil
}

// BuildTrackerURL constructs the announce URL with the query parameters
// and ordering §4.7 requires, percent-encoding the raw info_hash and
// peer_id per RFC 3986 at the call site rather than relying on
// net/url.Values (see urlbuilder.go).
func (t *TorrentFile) BuildTrackerURL(peerID [20]byte, port uint16) string {
	b := newURLBuilder(t.Announce)
	b.appendParam("info_hash", percentEncode(t.InfoHash[:]))
	b.appendParam("peer_id", percentEncode(peerID[:]))
	b.appendParam("port", strconv.Itoa(int(port)))
	b.appendParam("uploaded", "0")
	b.appendParam("downloaded", "0")
	b.appendParam("compact", "1")
	b.appendParam("left", strconv.Itoa(t.Length))
	return b.String()
}
