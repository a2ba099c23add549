package bencode

import (
	"bytes"
	"strconv"
)

// Encode serializes v into its bencoded form. For any tree decoded from
// bytes B, Encode(v) == B (§4.3, P1) because dictionaries are re-emitted
// in the order their entries are stored — the decoder's job is to
// guarantee that order is already ascending; Encode performs no
// normalization or reordering of its own.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

// EncodeTo appends the bencoded form of v to buf and returns the number
// of bytes written.
func EncodeTo(buf *bytes.Buffer, v Value) int {
	before := buf.Len()
	writeValue(buf, v)
	return buf.Len() - before
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case KindInteger:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		buf.WriteByte('e')
	case KindString:
		buf.WriteString(strconv.Itoa(len(v.Str)))
		buf.WriteByte(':')
		buf.Write(v.Str)
	case KindList:
		buf.WriteByte('l')
		for _, item := range v.List {
			writeValue(buf, item)
		}
		buf.WriteByte('e')
	case KindDict:
		buf.WriteByte('d')
		for _, e := range v.Dict {
			writeValue(buf, Value{Kind: KindString, Str: e.Key})
			writeValue(buf, e.Val)
		}
		buf.WriteByte('e')
	}
}
