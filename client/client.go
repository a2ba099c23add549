// Package client drives a full download: it resolves peers from the
// tracker (§4.7), then fans out piece work across peer connections
// opened and spoken to via package peer (§4.8, §4.9), reassembling and
// verifying pieces as they complete (§4.4).
package client

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"torrent-client/peer"
	"torrent-client/torrent"
)

// Port is the TCP port this client advertises to the tracker.
const Port uint16 = 6881

// Torrent is a resolved download session: a metainfo file plus the peer
// list learned from the tracker and the local identity presented in
// every handshake.
type Torrent struct {
	Peers    []torrent.Peer
	PeerID   [20]byte
	InfoHash [20]byte
	Pieces   []torrent.Piece
	Length   int
	Name     string
}

type pieceResult struct {
	index int
	buf   []byte
}

// pieceProgress tracks an in-flight download of a single piece over one
// peer connection, pipelining up to MaxBacklog outstanding block
// requests the way §9 allows. piece.Blocks is this progress's own copy
// (see DownloadPiece), so filling in Data here never touches the
// Torrent's shared Pieces slice.
type pieceProgress struct {
	piece      torrent.Piece
	client     *peer.Client
	downloaded int
	nextBlock  int
	backlog    int
}

const MaxBacklog = 5

func (state *pieceProgress) readMessage() error {
	msg, err := state.client.Read() // this call blocks
	if err != nil {
		return err
	}

	if msg == nil { // keep-alive
		return nil
	}

	switch msg.ID {
	case peer.MsgUnchoke:
		state.client.Choked = false
	case peer.MsgChoke:
		state.client.Choked = true
	case peer.MsgHave:
		index, err := peer.ParseHaveMessage(msg.Payload)
		if err != nil {
			return err
		}
		state.client.Bitfield.SetPiece(index)
	case peer.MsgPiece:
		n, err := state.copyPieceData(state.piece.Index, msg.Payload)
		if err != nil {
			return err
		}
		state.downloaded += n
		state.backlog--
	}
	return nil
}

// copyPieceData locates the block the payload's begin offset names
// within state.piece.Blocks (§4.4's layout makes every offset a
// multiple of torrent.DefaultBlockSize, except possibly the final
// block) and stores the received bytes into it.
func (state *pieceProgress) copyPieceData(index int, payload []byte) (int, error) {
	begin, block, err := peer.ParsePieceMessage(index, payload)
	if err != nil {
		return 0, err
	}

	blockIndex := begin / torrent.DefaultBlockSize
	if blockIndex < 0 || blockIndex >= len(state.piece.Blocks) {
		return 0, fmt.Errorf("block offset %d has no matching block in piece %d", begin, index)
	}

	target := &state.piece.Blocks[blockIndex]
	if target.Offset != begin {
		return 0, fmt.Errorf("block offset mismatch: got %d, want %d", begin, target.Offset)
	}
	if len(block) != target.Size {
		return 0, fmt.Errorf("block %d: got %d bytes, want %d", blockIndex, len(block), target.Size)
	}

	target.Data = append([]byte(nil), block...)
	state.piece.BlocksReceived++
	return len(block), nil
}

// DownloadPiece fetches and verifies a single piece from c, the way
// `download_piece` (§6) needs — independent of the multi-peer Download
// driver below. It works directly against the piece's Block layout
// (§4.4): each in-flight request corresponds to one torrent.Block, and
// the final buffer comes from Piece.Assemble once every block has
// arrived.
func DownloadPiece(c *peer.Client, p torrent.Piece) ([]byte, error) {
	state := pieceProgress{
		piece:  p,
		client: c,
	}
	state.piece.Blocks = append([]torrent.Block(nil), p.Blocks...)

	// 30 seconds is more than enough to pull one piece; this keeps an
	// unresponsive peer from blocking the whole download indefinitely.
	c.Conn.SetDeadline(time.Now().Add(30 * time.Second))
	defer c.Conn.SetDeadline(time.Time{})

	for !state.piece.Complete() {
		if !state.client.Choked {
			for state.backlog < MaxBacklog && state.nextBlock < len(state.piece.Blocks) {
				block := state.piece.Blocks[state.nextBlock]
				if err := c.SendBlockRequest(p.Index, block); err != nil {
					return nil, err
				}
				state.backlog++
				state.nextBlock++
			}
		}

		if err := state.readMessage(); err != nil {
			return nil, err
		}
	}

	buf := state.piece.Assemble()
	if err := checkIntegrity(p, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

func checkIntegrity(p torrent.Piece, buf []byte) error {
	hash := sha1.Sum(buf)
	if !bytes.Equal(hash[:], p.Hash[:]) {
		return fmt.Errorf("piece %d failed integrity check", p.Index)
	}
	return nil
}

func (t *Torrent) startDownloadWorker(peerAddr torrent.Peer, workQueue chan torrent.Piece, results chan *pieceResult) {
	c, err := peer.New(&peerAddr, t.InfoHash, t.PeerID)
	if err != nil {
		log.Printf("could not handshake with %s, disconnecting: %v", peerAddr, err)
		return
	}
	defer c.Close()
	log.Printf("completed handshake with %s", peerAddr)

	c.SendUnchoke()
	c.SendInterested()

	for p := range workQueue {
		if !c.Bitfield.HasPiece(p.Index) {
			workQueue <- p // put piece back on the queue
			continue
		}

		buf, err := DownloadPiece(c, p)
		if err != nil {
			log.Printf("exiting peer worker for %s: %v", peerAddr, err)
			workQueue <- p
			return
		}

		c.SendHave(p.Index)
		results <- &pieceResult{p.Index, buf}
	}
}

// Download drives the full multi-peer piece exchange and returns the
// assembled, verified file contents (§4.4, §5).
func (t *Torrent) Download() ([]byte, error) {
	log.Println("starting download for", t.Name)

	workQueue := make(chan torrent.Piece, len(t.Pieces))
	results := make(chan *pieceResult)
	for _, p := range t.Pieces {
		workQueue <- p
	}

	for _, p := range t.Peers {
		go t.startDownloadWorker(p, workQueue, results)
	}

	offsets := make([]int, len(t.Pieces))
	for i := 1; i < len(t.Pieces); i++ {
		offsets[i] = offsets[i-1] + t.Pieces[i-1].Size
	}

	buf := make([]byte, t.Length)
	donePieces := 0
	for donePieces < len(t.Pieces) {
		res := <-results
		begin := offsets[res.index]
		copy(buf[begin:begin+len(res.buf)], res.buf)
		donePieces++

		percent := float64(donePieces) / float64(len(t.Pieces)) * 100
		numWorkers := runtime.NumGoroutine() - 1
		log.Printf("(%0.2f%%) downloaded piece #%d from %d peers", percent, res.index, numWorkers)
	}
	close(workQueue)

	return buf, nil
}

// Open resolves the tracker and returns a ready-to-download Torrent.
func Open(path string) (*Torrent, error) {
	file, err := torrent.Open(path)
	if err != nil {
		return nil, err
	}

	peerID, err := generatePeerID()
	if err != nil {
		return nil, err
	}

	peers, err := requestPeers(file, peerID, Port)
	if err != nil {
		return nil, err
	}

	return &Torrent{
		Peers:    peers,
		PeerID:   peerID,
		InfoHash: file.InfoHash,
		Pieces:   file.Pieces,
		Length:   file.Length,
		Name:     file.Name,
	}, nil
}

func requestPeers(t *torrent.TorrentFile, peerID [20]byte, port uint16) ([]torrent.Peer, error) {
	resp, err := torrent.RequestPeers(t, peerID, port)
	if err != nil {
		return nil, err
	}
	return resp.Peers, nil
}

func generatePeerID() ([20]byte, error) {
	var peerID [20]byte
	_, err := rand.Read(peerID[:])
	return peerID, err
}

// DownloadToFile runs Download and writes the result to path, or to
// stdout when path is empty.
func (t *Torrent) DownloadToFile(path string) error {
	var f *os.File
	var err error

	if path == "" {
		f = os.Stdout
	} else {
		f, err = os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
	}

	buf, err := t.Download()
	if err != nil {
		return err
	}

	_, err = f.Write(buf)
	return err
}
