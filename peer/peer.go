package peer

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"torrent-client/torrent"
)

type Client struct {
	Conn     net.Conn
	Choked   bool
	Bitfield Bitfield
	peer     *torrent.Peer
	infoHash [20]byte
	peerID   [20]byte
}

// ErrBadAddress is the Schema/Syntax-kind error tcp_connect_from_address
// (§4.9) returns when addr isn't a well-formed "ip:port" pair: more or
// fewer than one colon, an empty IP, or a port outside 1..65535.
var ErrBadAddress = errors.New("peer: invalid address, want ip:port")

// DialAddr implements tcp_connect_from_address (§4.9): it validates addr
// before dialing so a malformed address fails with ErrBadAddress rather
// than whatever error net.Dial happens to produce for it.
func DialAddr(addr string, timeout time.Duration) (net.Conn, error) {
	ip, port, err := parseAddr(addr)
	if err != nil {
		return nil, err
	}
	return net.DialTimeout("tcp", net.JoinHostPort(ip, port), timeout)
}

func parseAddr(addr string) (ip string, port string, err error) {
	if strings.Count(addr, ":") != 1 {
		return "", "", fmt.Errorf("%w %q", ErrBadAddress, addr)
	}

	colon := strings.IndexByte(addr, ':')
	ip, port = addr[:colon], addr[colon+1:]
	if ip == "" {
		return "", "", fmt.Errorf("%w %q: empty IP", ErrBadAddress, addr)
	}

	n, convErr := parsePort(port)
	if convErr != nil || n < 1 || n > 65535 {
		return "", "", fmt.Errorf("%w %q: port out of range 1..65535", ErrBadAddress, addr)
	}

	return ip, port, nil
}

func parsePort(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, ErrBadAddress
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrBadAddress
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// New dials peer, validating its address the way DialAddr does, then
// completes the handshake (§4.8) and waits for the bitfield (§4.9) the
// protocol requires a well-behaved peer to send first.
func New(peer *torrent.Peer, infoHash, peerID [20]byte) (*Client, error) {
	conn, err := DialAddr(peer.String(), 3*time.Second)
	if err != nil {
		return nil, err
	}

	_, err = completeHandshake(conn, infoHash, peerID)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed handshake with %s: %w", peer, err)
	}

	bf, err := recvBitfield(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to receive bitfield from %s: %w", peer, err)
	}

	return &Client{
		Conn:     conn,
		Choked:   true,
		Bitfield: bf,
		peer:     peer,
		infoHash: infoHash,
		peerID:   peerID,
	}, nil
}

func completeHandshake(conn net.Conn, infohash, peerID [20]byte) (*Handshake, error) {
	conn.SetDeadline(time.Now().Add(3 * time.Second))
	defer conn.SetDeadline(time.Time{}) // Disable the deadline

	req := NewHandshake(infohash, peerID)
	_, err := conn.Write(req.Serialize())
	if err != nil {
		return nil, err
	}

	res, err := ReadHandshake(conn)
	if err != nil {
		return nil, err
	}

	if res.InfoHash != infohash {
		return nil, fmt.Errorf("expected infohash %x but got %x", infohash, res.InfoHash)
	}

	return res, nil
}

func recvBitfield(conn net.Conn) (Bitfield, error) {
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetDeadline(time.Time{})

	msg, err := ReadMessage(conn)
	if err != nil {
		return nil, err
	}

	if msg == nil {
		return nil, fmt.Errorf("expected bitfield but got keep-alive")
	}

	if msg.ID != MsgBitfield {
		return nil, fmt.Errorf("expected bitfield but got ID %d", msg.ID)
	}

	return msg.Payload, nil
}

func (c *Client) Read() (*Message, error) {
	msg, err := ReadMessage(c.Conn)
	return msg, err
}

// SendBlockRequest requests block b of piece index, taking its offset
// and size straight from the torrent.Block layout (§4.4) rather than
// bare ints threaded through the caller.
func (c *Client) SendBlockRequest(index int, b torrent.Block) error {
	req := NewRequestMessage(index, b.Offset, b.Size)
	_, err := c.Conn.Write(req.Serialize())
	return err
}

func (c *Client) SendInterested() error {
	msg := Message{ID: MsgInterested}
	_, err := c.Conn.Write(msg.Serialize())
	return err
}

func (c *Client) SendNotInterested() error {
	msg := Message{ID: MsgNotInterested}
	_, err := c.Conn.Write(msg.Serialize())
	return err
}

func (c *Client) SendUnchoke() error {
	msg := Message{ID: MsgUnchoke}
	_, err := c.Conn.Write(msg.Serialize())
	return err
}

func (c *Client) SendHave(index int) error {
	msg := NewHaveMessage(index)
	_, err := c.Conn.Write(msg.Serialize())
	return err
}

func (c *Client) Close() error {
	return c.Conn.Close()
}
