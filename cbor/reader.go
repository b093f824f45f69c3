package cbor

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/heliotx/cardano-txcore/txerr"
)

const breakByte = 0xFF

// containerKind distinguishes the two container shapes a frame on the
// reader's stack can represent.
type containerKind int

const (
	containerArray containerKind = iota
	containerMap
)

type frame struct {
	kind      containerKind
	definite  bool
	remaining int64 // sub-items left; for maps this counts key+value slots, so it is 2*n
}

// Reader is a stateful, forward-only parser over a byte slice. Every
// Read* method consumes exactly one data item from the stream, per
// §4.1.
type Reader struct {
	buf   []byte
	pos   int
	stack []frame
}

// NewReader wraps buf for reading. buf is not copied; callers must not
// mutate it while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Clone duplicates the cursor and container stack so the caller can
// look ahead without disturbing the original reader.
func (r *Reader) Clone() *Reader {
	stack := make([]frame, len(r.stack))
	copy(stack, r.stack)
	return &Reader{buf: r.buf, pos: r.pos, stack: stack}
}

// BytesRemaining returns the number of unread bytes.
func (r *Reader) BytesRemaining() int { return len(r.buf) - r.pos }

// GetRemainder returns the unread tail of the buffer without advancing.
func (r *Reader) GetRemainder() []byte { return r.buf[r.pos:] }

func (r *Reader) peekByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, txerr.New(txerr.KindDecoding, "truncated input: expected at least 1 more byte")
	}
	return r.buf[r.pos], nil
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return txerr.New(txerr.KindDecoding, "truncated input: need %d bytes, have %d", n, len(r.buf)-r.pos)
	}
	return nil
}

// decodeHead reads a CBOR head at the cursor, advancing past it, and
// returns the major type, the additional-info nibble and the decoded
// argument (length/value, meaningless when indefinite is true).
func (r *Reader) decodeHead() (major int, info int, arg uint64, indefinite bool, err error) {
	b0, err := r.peekByte()
	if err != nil {
		return 0, 0, 0, false, err
	}
	major = int(b0 >> 5)
	info = int(b0 & 0x1f)
	r.pos++

	switch {
	case info < 24:
		return major, info, uint64(info), false, nil
	case info == 24:
		if err := r.need(1); err != nil {
			return 0, 0, 0, false, err
		}
		v := uint64(r.buf[r.pos])
		r.pos++
		return major, info, v, false, nil
	case info == 25:
		if err := r.need(2); err != nil {
			return 0, 0, 0, false, err
		}
		v := uint64(binary.BigEndian.Uint16(r.buf[r.pos:]))
		r.pos += 2
		return major, info, v, false, nil
	case info == 26:
		if err := r.need(4); err != nil {
			return 0, 0, 0, false, err
		}
		v := uint64(binary.BigEndian.Uint32(r.buf[r.pos:]))
		r.pos += 4
		return major, info, v, false, nil
	case info == 27:
		if err := r.need(8); err != nil {
			return 0, 0, 0, false, err
		}
		v := binary.BigEndian.Uint64(r.buf[r.pos:])
		r.pos += 8
		return major, info, v, false, nil
	case info == 31:
		return major, info, 0, true, nil
	default:
		return 0, 0, 0, false, txerr.New(txerr.KindDecoding, "reserved additional info %d", info)
	}
}

// afterValue decrements the innermost container's remaining-item
// counter, if any. It must be called exactly once by every Read*
// method that consumes one data item at the current nesting level.
func (r *Reader) afterValue() {
	if len(r.stack) == 0 {
		return
	}
	top := &r.stack[len(r.stack)-1]
	if top.definite && top.remaining > 0 {
		top.remaining--
	}
}

// PeekState reports the shape of the next data item without consuming it.
func (r *Reader) PeekState() (ReaderState, error) {
	if len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		if top.definite {
			if top.remaining == 0 {
				if top.kind == containerArray {
					return StateEndArray, nil
				}
				return StateEndMap, nil
			}
		} else {
			b, err := r.peekByte()
			if err != nil {
				return StateUndefined, err
			}
			if b == breakByte {
				if top.kind == containerArray {
					return StateEndArray, nil
				}
				return StateEndMap, nil
			}
		}
	}

	if r.pos >= len(r.buf) {
		return StateEndOfData, nil
	}

	b0 := r.buf[r.pos]
	major := int(b0 >> 5)
	info := int(b0 & 0x1f)

	switch major {
	case 0:
		return StateUnsignedInteger, nil
	case 1:
		return StateNegativeInteger, nil
	case 2:
		if info == 31 {
			return StateByteStringIndefiniteStart, nil
		}
		return StateByteString, nil
	case 3:
		if info == 31 {
			return StateTextStringIndefiniteStart, nil
		}
		return StateTextString, nil
	case 4:
		if info == 31 {
			return StateStartIndefiniteArray, nil
		}
		return StateStartArray, nil
	case 5:
		if info == 31 {
			return StateStartIndefiniteMap, nil
		}
		return StateStartMap, nil
	case 6:
		return StateTag, nil
	case 7:
		switch info {
		case 20, 21:
			return StateBoolean, nil
		case 22:
			return StateNull, nil
		case 23:
			return StateSimpleValue, nil
		case 25, 26, 27:
			return StateDouble, nil
		default:
			return StateSimpleValue, nil
		}
	default:
		return StateUndefined, txerr.New(txerr.KindUnexpectedCborType, "unhandled major type %d", major)
	}
}

// ReadUnsigned reads a definite major-0 unsigned integer.
func (r *Reader) ReadUnsigned() (uint64, error) {
	major, _, arg, indef, err := r.decodeHead()
	if err != nil {
		return 0, err
	}
	if major != 0 || indef {
		return 0, txerr.New(txerr.KindUnexpectedCborType, "expected unsigned int, got major %d", major)
	}
	r.afterValue()
	return arg, nil
}

// ReadSigned reads a major-0 or major-1 integer that fits in an int64.
func (r *Reader) ReadSigned() (int64, error) {
	major, _, arg, indef, err := r.decodeHead()
	if err != nil {
		return 0, err
	}
	if indef || (major != 0 && major != 1) {
		return 0, txerr.New(txerr.KindUnexpectedCborType, "expected integer, got major %d", major)
	}
	r.afterValue()
	if major == 0 {
		if arg > math.MaxInt64 {
			return 0, txerr.New(txerr.KindInvalidCborValue, "unsigned int %d overflows int64", arg)
		}
		return int64(arg), nil
	}
	// major 1: value is -1-arg
	if arg > math.MaxInt64 {
		return 0, txerr.New(txerr.KindInvalidCborValue, "negative int magnitude %d overflows int64", arg)
	}
	return -1 - int64(arg), nil
}

// ReadBigInt reads an arbitrary-precision integer: an inline major-0/1
// integer, or a tagged bignum (RFC 8949 §3.4.3, tags 2 and 3).
func (r *Reader) ReadBigInt() (*big.Int, error) {
	state, err := r.PeekState()
	if err != nil {
		return nil, err
	}

	if state == StateTag {
		tag, err := r.ReadTag()
		if err != nil {
			return nil, err
		}
		bs, err := r.ReadBytestring()
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(bs)
		switch tag {
		case TagBignumPositive:
			return n, nil
		case TagBignumNegative:
			// value = -1 - n
			return new(big.Int).Sub(big.NewInt(-1), n), nil
		default:
			return nil, txerr.New(txerr.KindInvalidCborValue, "unexpected tag %d for bignum", tag)
		}
	}

	major, _, arg, indef, err := r.decodeHead()
	if err != nil {
		return nil, err
	}
	if indef || (major != 0 && major != 1) {
		return nil, txerr.New(txerr.KindUnexpectedCborType, "expected integer, got major %d", major)
	}
	r.afterValue()
	n := new(big.Int).SetUint64(arg)
	if major == 1 {
		n = new(big.Int).Sub(big.NewInt(-1), n)
	}
	return n, nil
}

// ReadBool reads a CBOR boolean simple value.
func (r *Reader) ReadBool() (bool, error) {
	major, info, _, _, err := r.decodeHead()
	if err != nil {
		return false, err
	}
	if major != 7 || (info != 20 && info != 21) {
		return false, txerr.New(txerr.KindUnexpectedCborType, "expected bool")
	}
	r.afterValue()
	return info == 21, nil
}

// ReadNull consumes a CBOR null simple value.
func (r *Reader) ReadNull() error {
	major, info, _, _, err := r.decodeHead()
	if err != nil {
		return err
	}
	if major != 7 || info != 22 {
		return txerr.New(txerr.KindUnexpectedCborType, "expected null")
	}
	r.afterValue()
	return nil
}

// ReadDouble reads a major-7 IEEE-754 double (additional info 27).
func (r *Reader) ReadDouble() (float64, error) {
	major, info, arg, _, err := r.decodeHead()
	if err != nil {
		return 0, err
	}
	if major != 7 || info != 27 {
		return 0, txerr.New(txerr.KindUnexpectedCborType, "expected double-precision float")
	}
	r.afterValue()
	return math.Float64frombits(arg), nil
}

// ReadSimpleValue reads a major-7 simple value other than bool/null/float.
func (r *Reader) ReadSimpleValue() (uint64, error) {
	major, info, arg, _, err := r.decodeHead()
	if err != nil {
		return 0, err
	}
	if major != 7 || info == 20 || info == 21 || info == 22 || info >= 25 {
		return 0, txerr.New(txerr.KindUnexpectedCborType, "expected simple value")
	}
	r.afterValue()
	return arg, nil
}

// ReadBytestring reads a definite or indefinite byte string. Indefinite
// chunks are concatenated; the chunk boundaries are then lost to this
// call (callers that need the original framing use ReadEncodedValue).
func (r *Reader) ReadBytestring() ([]byte, error) {
	major, _, arg, indef, err := r.decodeHead()
	if err != nil {
		return nil, err
	}
	if major != 2 {
		return nil, txerr.New(txerr.KindUnexpectedCborType, "expected byte string, got major %d", major)
	}

	if !indef {
		if err := r.need(int(arg)); err != nil {
			return nil, err
		}
		out := make([]byte, arg)
		copy(out, r.buf[r.pos:r.pos+int(arg)])
		r.pos += int(arg)
		r.afterValue()
		return out, nil
	}

	var out []byte
	for {
		b, err := r.peekByte()
		if err != nil {
			return nil, err
		}
		if b == breakByte {
			r.pos++
			break
		}
		cmajor, _, clen, cindef, err := r.decodeHead()
		if err != nil {
			return nil, err
		}
		if cmajor != 2 || cindef {
			return nil, txerr.New(txerr.KindDecoding, "indefinite byte string chunk must be a definite byte string")
		}
		if err := r.need(int(clen)); err != nil {
			return nil, err
		}
		out = append(out, r.buf[r.pos:r.pos+int(clen)]...)
		r.pos += int(clen)
	}
	r.afterValue()
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// ReadTextstring reads a definite or indefinite UTF-8 text string.
func (r *Reader) ReadTextstring() (string, error) {
	major, _, arg, indef, err := r.decodeHead()
	if err != nil {
		return "", err
	}
	if major != 3 {
		return "", txerr.New(txerr.KindUnexpectedCborType, "expected text string, got major %d", major)
	}

	if !indef {
		if err := r.need(int(arg)); err != nil {
			return "", err
		}
		s := string(r.buf[r.pos : r.pos+int(arg)])
		r.pos += int(arg)
		r.afterValue()
		return s, nil
	}

	var out []byte
	for {
		b, err := r.peekByte()
		if err != nil {
			return "", err
		}
		if b == breakByte {
			r.pos++
			break
		}
		cmajor, _, clen, cindef, err := r.decodeHead()
		if err != nil {
			return "", err
		}
		if cmajor != 3 || cindef {
			return "", txerr.New(txerr.KindDecoding, "indefinite text string chunk must be a definite text string")
		}
		if err := r.need(int(clen)); err != nil {
			return "", err
		}
		out = append(out, r.buf[r.pos:r.pos+int(clen)]...)
		r.pos += int(clen)
	}
	r.afterValue()
	return string(out), nil
}

// ReadStartArray begins a definite or indefinite array, returning its
// declared length or -1 for indefinite.
func (r *Reader) ReadStartArray() (int64, error) {
	major, _, arg, indef, err := r.decodeHead()
	if err != nil {
		return 0, err
	}
	if major != 4 {
		return 0, txerr.New(txerr.KindUnexpectedCborType, "expected array, got major %d", major)
	}
	if indef {
		r.stack = append(r.stack, frame{kind: containerArray, definite: false})
		return -1, nil
	}
	r.stack = append(r.stack, frame{kind: containerArray, definite: true, remaining: int64(arg)})
	return int64(arg), nil
}

// ReadEndArray closes the innermost array frame.
func (r *Reader) ReadEndArray() error {
	if len(r.stack) == 0 {
		return txerr.New(txerr.KindDecoding, "not inside an array")
	}
	top := r.stack[len(r.stack)-1]
	if top.kind != containerArray {
		return txerr.New(txerr.KindUnexpectedCborType, "innermost container is not an array")
	}
	if top.definite {
		if top.remaining != 0 {
			return txerr.New(txerr.KindInvalidCborArraySize, "%d elements left unread", top.remaining)
		}
	} else {
		b, err := r.peekByte()
		if err != nil {
			return err
		}
		if b != breakByte {
			return txerr.New(txerr.KindDecoding, "expected break byte to end indefinite array")
		}
		r.pos++
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.afterValue()
	return nil
}

// ReadStartMap begins a definite or indefinite map, returning its
// declared pair count or -1 for indefinite.
func (r *Reader) ReadStartMap() (int64, error) {
	major, _, arg, indef, err := r.decodeHead()
	if err != nil {
		return 0, err
	}
	if major != 5 {
		return 0, txerr.New(txerr.KindUnexpectedCborType, "expected map, got major %d", major)
	}
	if indef {
		r.stack = append(r.stack, frame{kind: containerMap, definite: false})
		return -1, nil
	}
	r.stack = append(r.stack, frame{kind: containerMap, definite: true, remaining: int64(arg) * 2})
	return int64(arg), nil
}

// ReadEndMap closes the innermost map frame.
func (r *Reader) ReadEndMap() error {
	if len(r.stack) == 0 {
		return txerr.New(txerr.KindDecoding, "not inside a map")
	}
	top := r.stack[len(r.stack)-1]
	if top.kind != containerMap {
		return txerr.New(txerr.KindUnexpectedCborType, "innermost container is not a map")
	}
	if top.definite {
		if top.remaining != 0 {
			return txerr.New(txerr.KindInvalidCborArraySize, "map has an unpaired key or value")
		}
	} else {
		b, err := r.peekByte()
		if err != nil {
			return err
		}
		if b != breakByte {
			return txerr.New(txerr.KindDecoding, "expected break byte to end indefinite map")
		}
		r.pos++
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.afterValue()
	return nil
}

// ReadTag reads a major-6 tag number without consuming the tagged value.
func (r *Reader) ReadTag() (Tag, error) {
	major, _, arg, indef, err := r.decodeHead()
	if err != nil {
		return 0, err
	}
	if major != 6 || indef {
		return 0, txerr.New(txerr.KindUnexpectedCborType, "expected tag")
	}
	// Note: the tag and the value it wraps count as a single data item
	// in the enclosing container, so afterValue is deferred to when the
	// tagged value itself is read.
	return Tag(arg), nil
}

// PeekTag reports the tag number at the cursor without advancing, or
// ok=false if the next item is not a tag.
func (r *Reader) PeekTag() (tag Tag, ok bool, err error) {
	state, err := r.PeekState()
	if err != nil {
		return 0, false, err
	}
	if state != StateTag {
		return 0, false, nil
	}
	clone := r.Clone()
	t, err := clone.ReadTag()
	if err != nil {
		return 0, false, err
	}
	return t, true, nil
}

// SkipValue skips the next complete data item, whatever its shape,
// respecting indefinite containers.
func (r *Reader) SkipValue() error {
	end, err := spanValue(r.buf, r.pos)
	if err != nil {
		return err
	}
	r.pos = end
	r.afterValue()
	return nil
}

// ReadEncodedValue returns the exact byte range of the next complete
// data item - including any leading tags and, for indefinite
// containers, the trailing break byte - and advances past it. This is
// the primitive the hash-preserving cache is built on.
func (r *Reader) ReadEncodedValue() ([]byte, error) {
	start := r.pos
	end, err := spanValue(r.buf, r.pos)
	if err != nil {
		return nil, err
	}
	out := make([]byte, end-start)
	copy(out, r.buf[start:end])
	r.pos = end
	r.afterValue()
	return out, nil
}

// spanValue returns the end offset of the single complete data item
// starting at pos, without touching the Reader's own container stack
// (it is used to look arbitrarily far ahead/around the current
// nesting level).
func spanValue(buf []byte, pos int) (int, error) {
	if pos >= len(buf) {
		return 0, txerr.New(txerr.KindDecoding, "truncated input while spanning a value")
	}
	b0 := buf[pos]
	major := int(b0 >> 5)
	info := int(b0 & 0x1f)

	headLen, arg, indef, err := spanHead(buf, pos)
	if err != nil {
		return 0, err
	}
	p := pos + headLen

	switch major {
	case 0, 1:
		return p, nil
	case 2, 3:
		if !indef {
			if p+int(arg) > len(buf) {
				return 0, txerr.New(txerr.KindDecoding, "truncated string content")
			}
			return p + int(arg), nil
		}
		for {
			if p >= len(buf) {
				return 0, txerr.New(txerr.KindDecoding, "truncated indefinite string")
			}
			if buf[p] == breakByte {
				return p + 1, nil
			}
			cl, carg, cindef, err := spanHead(buf, p)
			if err != nil {
				return 0, err
			}
			if cindef {
				return 0, txerr.New(txerr.KindDecoding, "nested indefinite chunk in indefinite string")
			}
			p += cl + int(carg)
		}
	case 4:
		if !indef {
			for i := uint64(0); i < arg; i++ {
				p, err = spanValue(buf, p)
				if err != nil {
					return 0, err
				}
			}
			return p, nil
		}
		for {
			if p >= len(buf) {
				return 0, txerr.New(txerr.KindDecoding, "truncated indefinite array")
			}
			if buf[p] == breakByte {
				return p + 1, nil
			}
			p, err = spanValue(buf, p)
			if err != nil {
				return 0, err
			}
		}
	case 5:
		if !indef {
			for i := uint64(0); i < arg*2; i++ {
				p, err = spanValue(buf, p)
				if err != nil {
					return 0, err
				}
			}
			return p, nil
		}
		for {
			if p >= len(buf) {
				return 0, txerr.New(txerr.KindDecoding, "truncated indefinite map")
			}
			if buf[p] == breakByte {
				return p + 1, nil
			}
			p, err = spanValue(buf, p)
			if err != nil {
				return 0, err
			}
		}
	case 6:
		return spanValue(buf, p)
	case 7:
		switch info {
		case 25:
			return p + 2, nil
		case 26:
			return p + 4, nil
		case 27:
			return p + 8, nil
		case 31:
			return 0, txerr.New(txerr.KindDecoding, "unexpected break byte")
		default:
			return p, nil
		}
	default:
		return 0, txerr.New(txerr.KindUnexpectedCborType, "unhandled major type %d", major)
	}
}

// spanHead is the byte-slice-local equivalent of decodeHead: it does
// not mutate any reader state, just reports how many bytes the head
// occupies and what argument/indefiniteness it encodes.
func spanHead(buf []byte, pos int) (headLen int, arg uint64, indefinite bool, err error) {
	if pos >= len(buf) {
		return 0, 0, false, txerr.New(txerr.KindDecoding, "truncated input while reading a head")
	}
	info := int(buf[pos] & 0x1f)
	switch {
	case info < 24:
		return 1, uint64(info), false, nil
	case info == 24:
		if pos+2 > len(buf) {
			return 0, 0, false, txerr.New(txerr.KindDecoding, "truncated 1-byte head argument")
		}
		return 2, uint64(buf[pos+1]), false, nil
	case info == 25:
		if pos+3 > len(buf) {
			return 0, 0, false, txerr.New(txerr.KindDecoding, "truncated 2-byte head argument")
		}
		return 3, uint64(binary.BigEndian.Uint16(buf[pos+1:])), false, nil
	case info == 26:
		if pos+5 > len(buf) {
			return 0, 0, false, txerr.New(txerr.KindDecoding, "truncated 4-byte head argument")
		}
		return 5, uint64(binary.BigEndian.Uint32(buf[pos+1:])), false, nil
	case info == 27:
		if pos+9 > len(buf) {
			return 0, 0, false, txerr.New(txerr.KindDecoding, "truncated 8-byte head argument")
		}
		return 9, binary.BigEndian.Uint64(buf[pos+1:]), false, nil
	case info == 31:
		return 1, 0, true, nil
	default:
		return 0, 0, false, txerr.New(txerr.KindDecoding, "reserved additional info %d", info)
	}
}
