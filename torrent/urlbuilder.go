package torrent

import "bytes"

// urlBuilder constructs a tracker announce URL by appending already
// percent-encoded query parameters to a base URL, exactly in the order
// appendParam is called (§4.6). It deliberately avoids net/url.Values:
// Values.Encode performs form encoding (spaces become '+', and it is not
// a strict RFC 3986 percent-encoder), which is unsafe for the raw binary
// info_hash bytes this package needs to send — see SPEC_FULL.md's DOMAIN
// STACK section.
type urlBuilder struct {
	buf      bytes.Buffer
	hasQuery bool
}

func newURLBuilder(base string) *urlBuilder {
	b := &urlBuilder{}
	b.buf.WriteString(base)
	return b
}

// appendParam appends "?key=value" on the first call and "&key=value" on
// subsequent calls. key and value are written verbatim: the caller is
// responsible for percent-encoding (see percentEncode).
func (b *urlBuilder) appendParam(key, value string) *urlBuilder {
	if !b.hasQuery {
		b.buf.WriteByte('?')
		b.hasQuery = true
	} else {
		b.buf.WriteByte('&')
	}
	b.buf.WriteString(key)
	b.buf.WriteByte('=')
	b.buf.WriteString(value)
	return b
}

func (b *urlBuilder) String() string {
	return b.buf.String()
}

const upperHex = "0123456789ABCDEF"

// isUnreserved reports whether b may appear unescaped in a URL per
// RFC 3986 §2.3: ALPHA / DIGIT / "-" / "." / "_" / "~".
func isUnreserved(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_' || b == '~':
		return true
	}
	return false
}

// percentEncode encodes raw bytes per RFC 3986, escaping every byte that
// is not in the unreserved set as %XX. Unlike url.QueryEscape, this never
// treats the input as text and never substitutes '+' for a space — every
// non-unreserved byte, including arbitrary binary like an info_hash, is
// escaped uniformly (§9: "An off-by-one here silently breaks tracker
// matching").
func percentEncode(data []byte) string {
	var buf bytes.Buffer
	buf.Grow(len(data))
	for _, b := range data {
		if isUnreserved(b) {
			buf.WriteByte(b)
			continue
		}
		buf.WriteByte('%')
		buf.WriteByte(upperHex[b>>4])
		buf.WriteByte(upperHex[b&0x0f])
	}
	return buf.String()
}
