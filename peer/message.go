package peer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MessageID identifies the peer wire message types of §4.9.
type MessageID byte

const (
	MsgChoke         MessageID = 0
	MsgUnchoke       MessageID = 1
	MsgInterested    MessageID = 2
	MsgNotInterested MessageID = 3
	MsgHave          MessageID = 4
	MsgBitfield      MessageID = 5
	MsgRequest       MessageID = 6
	MsgPiece         MessageID = 7
	MsgCancel        MessageID = 8
)

// Message is a single peer wire message (§3, §4.9): a 4-byte big-endian
// length prefix covering id+payload, a 1-byte id, and a payload whose
// shape depends on id. A nil *Message represents the zero-length
// keep-alive frame, which carries no id at all.
type Message struct {
	ID      MessageID
	Payload []byte
}

// Serialize produces the wire form of m. A nil receiver is the
// keep-alive frame: four zero length bytes and nothing else.
func (m *Message) Serialize() []byte {
	if m == nil {
		return []byte{0, 0, 0, 0}
	}

	length := uint32(1 + len(m.Payload))
	buf := make([]byte, 4+length)
	binary.BigEndian.PutUint32(buf[0:4], length)
	buf[4] = byte(m.ID)
	copy(buf[5:], m.Payload)
	return buf
}

// ReadMessage reads one length-prefixed frame from r. A zero-length
// frame is the keep-alive and is reported as a nil *Message with a nil
// error (§4.9).
func ReadMessage(r io.Reader) (*Message, error) {
	lengthBuf := make([]byte, 4)
	if err := readExactly(r, lengthBuf); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lengthBuf)
	if length == 0 {
		return nil, nil
	}

	messageBuf := make([]byte, length)
	if err := readExactly(r, messageBuf); err != nil {
		return nil, err
	}

	return &Message{
		ID:      MessageID(messageBuf[0]),
		Payload: messageBuf[1:],
	}, nil
}

// Name returns a human-readable label for m's message type, used in
// logging. A nil receiver is the keep-alive message.
func (m *Message) Name() string {
	if m == nil {
		return "KeepAlive"
	}
	switch m.ID {
	case MsgChoke:
		return "Choke"
	case MsgUnchoke:
		return "Unchoke"
	case MsgInterested:
		return "Interested"
	case MsgNotInterested:
		return "NotInterested"
	case MsgHave:
		return "Have"
	case MsgBitfield:
		return "Bitfield"
	case MsgRequest:
		return "Request"
	case MsgPiece:
		return "Piece"
	case MsgCancel:
		return "Cancel"
	default:
		return fmt.Sprintf("Unknown#%d", m.ID)
	}
}

// NewHaveMessage builds a have message announcing piece index (§4.9).
func NewHaveMessage(index int) *Message {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(index))
	return &Message{ID: MsgHave, Payload: payload}
}

// ParseHaveMessage extracts the piece index from a have message's
// payload.
func ParseHaveMessage(payload []byte) (int, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("peer: have payload is %d bytes, want 4", len(payload))
	}
	return int(binary.BigEndian.Uint32(payload)), nil
}

// NewRequestMessage builds a request message for the block described by
// index, begin, and length (§4.9).
func NewRequestMessage(index, begin, length int) *Message {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:4], uint32(index))
	binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
	binary.BigEndian.PutUint32(payload[8:12], uint32(length))
	return &Message{ID: MsgRequest, Payload: payload}
}

// NewCancelMessage builds a cancel message, identical in shape to a
// request message (§4.9).
func NewCancelMessage(index, begin, length int) *Message {
	msg := NewRequestMessage(index, begin, length)
	msg.ID = MsgCancel
	return msg
}

// NewPieceMessage builds a piece message carrying block at begin within
// piece index (§4.9). The caller-supplied index isn't encoded into the
// returned message's ID path — ParsePieceMessage takes it back as a
// parameter to verify against the piece index embedded in the payload.
func NewPieceMessage(index, begin int, block []byte) *Message {
	payload := make([]byte, 8+len(block))
	binary.BigEndian.PutUint32(payload[0:4], uint32(index))
	binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
	copy(payload[8:], block)
	return &Message{ID: MsgPiece, Payload: payload}
}

// ParsePieceMessage extracts begin and the block data from a piece
// message's payload, checking that the piece index embedded in the
// payload matches the index the caller was expecting (§4.9, §7).
func ParsePieceMessage(index int, payload []byte) (int, []byte, error) {
	if len(payload) < 8 {
		return 0, nil, fmt.Errorf("peer: piece payload is %d bytes, want at least 8", len(payload))
	}

	parsedIndex := int(binary.BigEndian.Uint32(payload[0:4]))
	if parsedIndex != index {
		return 0, nil, fmt.Errorf("peer: piece index mismatch: expected %d, got %d", index, parsedIndex)
	}

	begin := int(binary.BigEndian.Uint32(payload[4:8]))
	return begin, payload[8:], nil
}
