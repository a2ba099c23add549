package torrent

// DefaultBlockSize is the unit of request in peer message exchange — 16KB,
// per https://wiki.theory.org/BitTorrentSpecification and spec §3/§4.4.
const DefaultBlockSize = 16384

// Block is a sub-chunk of a Piece. Data is nil until the block has been
// received from a peer.
type Block struct {
	Offset int
	Size   int
	Data   []byte
}

// Piece is one fixed-size (except possibly the last) chunk of the file,
// verified independently by its SHA-1 hash.
type Piece struct {
	Index          int
	Size           int
	Hash           [20]byte
	Blocks         []Block
	BlocksReceived int
}

// newPieces lays out one piece per hash, each pieceLength bytes (the last possibly
// shorter, per §3) over a file of totalSize bytes, and block-initializes
// each one per §4.4.
func newPieces(totalSize, pieceLength int, hashes [][20]byte) []Piece {
	pieces := make([]Piece, len(hashes))
	for i := range hashes {
		size := pieceLength
		if i == len(hashes)-1 {
			if rem := totalSize % pieceLength; rem != 0 {
				size = rem
			}
		}
		pieces[i] = Piece{
			Index:  i,
			Size:   size,
			Hash:   hashes[i],
			Blocks: newBlocks(size),
		}
	}
	return pieces
}

// newBlocks lays out DefaultBlockSize blocks over a piece of size bytes,
// the last block possibly shorter.
func newBlocks(size int) []Block {
	count := (size + DefaultBlockSize - 1) / DefaultBlockSize
	if count == 0 {
		count = 1
	}
	blocks := make([]Block, count)
	for i := 0; i < count; i++ {
		offset := i * DefaultBlockSize
		blockSize := DefaultBlockSize
		if i == count-1 {
			if rem := size % DefaultBlockSize; rem != 0 {
				blockSize = rem
			} else if size == 0 {
				blockSize = 0
			}
		}
		blocks[i] = Block{Offset: offset, Size: blockSize}
	}
	return blocks
}

// Complete reports whether every block of the piece has been received.
func (p *Piece) Complete() bool {
	return p.BlocksReceived == len(p.Blocks)
}

// Assemble concatenates the piece's blocks into a single buffer. Callers
// must only call this once Complete reports true.
func (p *Piece) Assemble() []byte {
	buf := make([]byte, p.Size)
	for _, b := range p.Blocks {
		copy(buf[b.Offset:b.Offset+b.Size], b.Data)
	}
	return buf
}
