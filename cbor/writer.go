package cbor

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"math/big"
)

// Writer accumulates a CBOR byte stream. It produces definite-length
// forms by default; callers that need to reproduce a decoded
// indefinite form explicitly call the WriteStartIndefinite* variants
// (this is how the hash-preserving cache reproduces whichever shape a
// value was decoded in, per §4.5).
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// GetBytes returns the accumulated bytes. The returned slice is a copy;
// mutating it does not affect the Writer.
func (w *Writer) GetBytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

// GetHex returns the accumulated bytes hex-encoded.
func (w *Writer) GetHex() string { return hex.EncodeToString(w.buf) }

// GetSize returns the number of accumulated bytes.
func (w *Writer) GetSize() int { return len(w.buf) }

// GetHexSize returns the length of GetHex()'s output.
func (w *Writer) GetHexSize() int { return len(w.buf) * 2 }

func (w *Writer) writeHead(major int, n uint64) {
	m := byte(major) << 5
	switch {
	case n < 24:
		w.buf = append(w.buf, m|byte(n))
	case n < 256:
		w.buf = append(w.buf, m|24, byte(n))
	case n < 65536:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		w.buf = append(w.buf, m|25)
		w.buf = append(w.buf, b[:]...)
	case n < 1<<32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		w.buf = append(w.buf, m|26)
		w.buf = append(w.buf, b[:]...)
	default:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], n)
		w.buf = append(w.buf, m|27)
		w.buf = append(w.buf, b[:]...)
	}
}

// WriteUnsigned writes a canonical (shortest-head) major-0 integer.
func (w *Writer) WriteUnsigned(n uint64) { w.writeHead(0, n) }

// WriteSigned writes a canonical major-0/major-1 integer for any int64.
func (w *Writer) WriteSigned(n int64) {
	if n >= 0 {
		w.writeHead(0, uint64(n))
		return
	}
	w.writeHead(1, uint64(-1-n))
}

// WriteBigInt writes an arbitrary-precision integer, selecting between
// an inline major-0/1 head and a tagged bignum (tag 2 or 3) depending
// on magnitude.
func (w *Writer) WriteBigInt(n *big.Int) {
	if n.Sign() >= 0 {
		if n.IsUint64() {
			w.writeHead(0, n.Uint64())
			return
		}
		w.WriteTag(TagBignumPositive)
		w.WriteBytestring(n.Bytes())
		return
	}

	// negative: magnitude = -1 - n  ==  (-n) - 1
	mag := new(big.Int).Neg(n)
	mag.Sub(mag, big.NewInt(1))
	if mag.IsUint64() {
		w.writeHead(1, mag.Uint64())
		return
	}
	w.WriteTag(TagBignumNegative)
	w.WriteBytestring(mag.Bytes())
}

// WriteBool writes a CBOR boolean simple value.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 0xf5)
	} else {
		w.buf = append(w.buf, 0xf4)
	}
}

// WriteNull writes the CBOR null simple value.
func (w *Writer) WriteNull() { w.buf = append(w.buf, 0xf6) }

// WriteDouble writes a major-7 IEEE-754 double.
func (w *Writer) WriteDouble(v float64) {
	w.buf = append(w.buf, 0xfb)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteSimpleValue writes a major-7 simple value other than bool/null/float.
func (w *Writer) WriteSimpleValue(v uint64) { w.writeHead(7, v) }

// WriteBytestring writes a definite-length byte string.
func (w *Writer) WriteBytestring(bs []byte) {
	w.writeHead(2, uint64(len(bs)))
	w.buf = append(w.buf, bs...)
}

// WriteIndefiniteBytestringChunked writes bs as an indefinite-length
// byte string, split into chunks of at most 64 bytes, matching the
// chunking Plutus BoundedBytes values use on encode (§3.4/§4.3).
func (w *Writer) WriteIndefiniteBytestringChunked(bs []byte) {
	const chunkSize = 64
	w.buf = append(w.buf, byte(2)<<5|31)
	for len(bs) > 0 {
		n := chunkSize
		if n > len(bs) {
			n = len(bs)
		}
		w.WriteBytestring(bs[:n])
		bs = bs[n:]
	}
	w.buf = append(w.buf, breakByte)
}

// WriteTextstring writes a definite-length UTF-8 text string.
func (w *Writer) WriteTextstring(s string) {
	w.writeHead(3, uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteStartArray writes a definite-length array head.
func (w *Writer) WriteStartArray(n int) { w.writeHead(4, uint64(n)) }

// WriteStartIndefiniteArray writes an indefinite-length array head.
func (w *Writer) WriteStartIndefiniteArray() { w.buf = append(w.buf, byte(4)<<5|31) }

// WriteEndIndefiniteArray writes the break byte closing an indefinite array.
func (w *Writer) WriteEndIndefiniteArray() { w.buf = append(w.buf, breakByte) }

// WriteStartMap writes a definite-length map head (n key/value pairs).
func (w *Writer) WriteStartMap(n int) { w.writeHead(5, uint64(n)) }

// WriteStartIndefiniteMap writes an indefinite-length map head.
func (w *Writer) WriteStartIndefiniteMap() { w.buf = append(w.buf, byte(5)<<5|31) }

// WriteEndIndefiniteMap writes the break byte closing an indefinite map.
func (w *Writer) WriteEndIndefiniteMap() { w.buf = append(w.buf, breakByte) }

// WriteTag writes a major-6 tag number.
func (w *Writer) WriteTag(tag Tag) { w.writeHead(6, uint64(tag)) }

// WriteEncodedValue splices pre-encoded bytes verbatim into the stream.
// This is how the hash-preserving cache (C5) emits a cached subtree
// without re-serializing it.
func (w *Writer) WriteEncodedValue(bs []byte) { w.buf = append(w.buf, bs...) }

// EncodePlutusConstrTag returns the CBOR encoding of a Plutus data
// constructor's alternative tag per the §4.3 ladder: 121+alt for
// alt in 0..6, 1280+alt-7 for alt in 7..127, else the general form
// tag 102 (the caller still has to write the [alt, fields] or
// [alt, fields]-as-array wrapper afterwards).
func EncodePlutusConstrTag(alt uint64) (w *Writer, general bool) {
	w = NewWriter()
	switch {
	case alt <= PlutusConstrAltSmallMax:
		w.WriteTag(Tag(PlutusConstrTagBase + alt))
		return w, false
	case alt <= PlutusConstrAltExtendedMax:
		w.WriteTag(Tag(PlutusConstrTagBaseExtended + alt - 7))
		return w, false
	default:
		w.WriteTag(TagPlutusConstrGeneral)
		return w, true
	}
}
