package torrent

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"torrent-client/bencode"
)

// Errors surfaced by RequestPeers — Schema or Transport per §7.
var (
	ErrBadTrackerResponse = errors.New("torrent: tracker response is not a dictionary")
	ErrBadInterval        = errors.New("torrent: missing or invalid interval in tracker response")
	ErrBadPeers           = errors.New("torrent: missing or invalid peers in tracker response")
	ErrBadPeersLength     = errors.New("torrent: invalid peers data length (must be multiple of 6)")
)

// Peer is a single entry of a compact peer list (§3, §4.7).
type Peer struct {
	IP   net.IP
	Port uint16
}

func (p Peer) String() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// TrackerResponse is the parsed success response from the tracker (§3).
type TrackerResponse struct {
	Interval int
	Peers    []Peer
}

// readBufSize is the chunk size used when incrementally reading and
// decoding the tracker's response body (§4.7 step 5, §9).
const readBufSize = 4096

// RequestPeers issues the tracker GET request built by BuildTrackerURL and
// parses the compact peer list from the bencoded response. The response
// body is read incrementally: after each chunk arrives, decode is
// attempted against everything accumulated so far, and ErrPartial just
// means "read more" rather than a failure (§4.7 step 5, §9). This mirrors
// the original C client's growing response-aggregator buffer fed to
// decode_bencode in a loop, instead of slurping the whole body with
// io.ReadAll up front.
func RequestPeers(torrent *TorrentFile, peerID [20]byte, port uint16) (*TrackerResponse, error) {
	url := torrent.BuildTrackerURL(peerID, port)

	client := &http.Client{Timeout: 15 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to contact tracker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker returned HTTP %d", resp.StatusCode)
	}

	root, err := decodeIncrementally(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tracker response: %w", err)
	}

	return parseTrackerResponse(root)
}

// decodeIncrementally feeds r to bencode.Decode in growing chunks,
// retrying on bencode.ErrPartial and aborting on any other error
// (§4.7 step 5).
func decodeIncrementally(r io.Reader) (bencode.Value, error) {
	buf := make([]byte, 0, readBufSize)
	chunk := make([]byte, readBufSize)

	for {
		v, n, err := bencode.Decode(buf)
		if err == nil {
			if n != len(buf) {
				return bencode.Value{}, fmt.Errorf("%d trailing bytes after tracker response", len(buf)-n)
			}
			return v, nil
		}
		if !errors.Is(err, bencode.ErrPartial) {
			return bencode.Value{}, err
		}

		read, readErr := r.Read(chunk)
		if read > 0 {
			buf = append(buf, chunk[:read]...)
		}
		if readErr != nil {
			if readErr == io.EOF {
				if read > 0 {
					continue
				}
				return bencode.Value{}, fmt.Errorf("tracker response truncated: %w", bencode.ErrPartial)
			}
			return bencode.Value{}, readErr
		}
	}
}

func parseTrackerResponse(root bencode.Value) (*TrackerResponse, error) {
	if root.Kind != bencode.KindDict {
		return nil, ErrBadTrackerResponse
	}

	if reason, ok := root.GetString("failure reason"); ok {
		return nil, fmt.Errorf("tracker error: %s", reason)
	}

	interval, ok := root.GetInt("interval")
	if !ok {
		return nil, ErrBadInterval
	}

	peersData, ok := root.GetString("peers")
	if !ok {
		return nil, ErrBadPeers
	}

	peers, err := parsePeers(peersData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse peers: %w", err)
	}

	return &TrackerResponse{
		Interval: int(interval),
		Peers:    peers,
	}, nil
}

// parsePeers unpacks the compact peer format (§3, §4.7, S7): each 6-byte
// group is 4 IPv4 octets followed by a 2-byte big-endian port.
func parsePeers(peersData []byte) ([]Peer, error) {
	const peerSize = 6

	if len(peersData)%peerSize != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadPeersLength, len(peersData))
	}

	numPeers := len(peersData) / peerSize
	peers := make([]Peer, numPeers)

	for i := 0; i < numPeers; i++ {
		offset := i * peerSize
		ip := make(net.IP, 4)
		copy(ip, peersData[offset:offset+4])
		port := binary.BigEndian.Uint16(peersData[offset+4 : offset+6])
		peers[i] = Peer{IP: ip, Port: port}
	}

	return peers, nil
}
