// Package bencode implements a binary-safe, incremental decoder and a
// byte-exact encoder for the bencode format used by BitTorrent metainfo
// files and tracker responses.
package bencode

import "bytes"

// Kind identifies which of the four bencode productions a Value holds.
type Kind int

const (
	KindInteger Kind = iota
	KindString
	KindList
	KindDict
)

// DictEntry is a single key/value pair of a Dictionary, in the order it
// was encountered during decoding.
type DictEntry struct {
	Key []byte
	Val Value
}

// Value is a tagged bencode value tree. Exactly one of Int, Str, List or
// Dict is meaningful, selected by Kind. EncodedLen is the number of source
// bytes this value occupied when it was produced by Decode; it is zero for
// values built programmatically with the New* constructors, and Encode
// does not set it.
type Value struct {
	Kind       Kind
	Int        int64
	Str        []byte
	List       []Value
	Dict       []DictEntry
	EncodedLen int
}

// NewInteger returns an Integer value.
func NewInteger(i int64) Value {
	return Value{Kind: KindInteger, Int: i}
}

// NewString returns a ByteString value. The bytes are not copied.
func NewString(b []byte) Value {
	return Value{Kind: KindString, Str: b}
}

// NewList returns a List value with the given elements, in order.
func NewList(items ...Value) Value {
	return Value{Kind: KindList, List: items}
}

// NewDict returns an empty Dictionary. Use Set to add entries in ascending
// key order; Set maintains that ordering.
func NewDict() Value {
	return Value{Kind: KindDict}
}

// Set inserts or replaces the entry for key, keeping Dict in ascending
// byte order of keys as required by §3's ordering invariant.
func (v *Value) Set(key []byte, val Value) {
	for i, e := range v.Dict {
		if bytes.Equal(e.Key, key) {
			v.Dict[i].Val = val
			return
		}
		if bytes.Compare(key, e.Key) < 0 {
			entry := DictEntry{Key: key, Val: val}
			v.Dict = append(v.Dict, DictEntry{})
			copy(v.Dict[i+1:], v.Dict[i:])
			v.Dict[i] = entry
			return
		}
	}
	v.Dict = append(v.Dict, DictEntry{Key: key, Val: val})
}

// Get looks up key by exact byte equality and reports whether it was
// present.
func (v Value) Get(key []byte) (Value, bool) {
	for _, e := range v.Dict {
		if bytes.Equal(e.Key, key) {
			return e.Val, true
		}
	}
	return Value{}, false
}

// GetString is a convenience wrapper around Get for the common case of a
// dictionary value expected to be a ByteString.
func (v Value) GetString(key string) ([]byte, bool) {
	val, ok := v.Get([]byte(key))
	if !ok || val.Kind != KindString {
		return nil, false
	}
	return val.Str, true
}

// GetInt is a convenience wrapper around Get for the common case of a
// dictionary value expected to be an Integer.
func (v Value) GetInt(key string) (int64, bool) {
	val, ok := v.Get([]byte(key))
	if !ok || val.Kind != KindInteger {
		return 0, false
	}
	return val.Int, true
}

// GetDict is a convenience wrapper around Get for the common case of a
// dictionary value expected to be a Dictionary.
func (v Value) GetDict(key string) (Value, bool) {
	val, ok := v.Get([]byte(key))
	if !ok || val.Kind != KindDict {
		return Value{}, false
	}
	return val, true
}

// ToInterface converts v into plain Go values suitable for
// encoding/json.Marshal: int64, string, []interface{}, and
// map[string]interface{}. Byte strings are converted to Go strings
// rather than base64, matching how bencode byte strings are normally
// rendered in the "decode" CLI verb's output — binary-valued byte
// strings (info_hash, peer_id, pieces) are never fed through this path.
// Dictionary key ordering is lost, which is fine for display but means
// the result must not be re-encoded and compared byte-for-byte.
func (v Value) ToInterface() interface{} {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindString:
		return string(v.Str)
	case KindList:
		out := make([]interface{}, len(v.List))
		for i, item := range v.List {
			out[i] = item.ToInterface()
		}
		return out
	case KindDict:
		out := make(map[string]interface{}, len(v.Dict))
		for _, e := range v.Dict {
			out[string(e.Key)] = e.Val.ToInterface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether v and other have the same shape and content.
// Dict order matters: per §3, dictionary key order is semantic.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInteger:
		return v.Int == other.Int
	case KindString:
		return bytes.Equal(v.Str, other.Str)
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if len(v.Dict) != len(other.Dict) {
			return false
		}
		for i := range v.Dict {
			if !bytes.Equal(v.Dict[i].Key, other.Dict[i].Key) {
				return false
			}
			if !v.Dict[i].Val.Equal(other.Dict[i].Val) {
				return false
			}
		}
		return true
	}
	return false
}
