// Package cbor implements the subset of RFC 8949 the Cardano ledger
// uses: definite and indefinite arrays/maps/byte strings/text strings,
// tagged values, canonical integer encoding and the byte-exact
// "encoded value" primitive the hash-preserving cache is built on.
//
// This is a hand-written codec, not a wrapper around a general-purpose
// CBOR library: the ledger accepts encodings (indefinite-length forms,
// non-canonical-looking but valid tag placements) that a general CBOR
// library's canonical-only writer would refuse to reproduce, and a
// decode-then-encode round trip must be byte-exact for signatures to
// remain valid.
package cbor

// ReaderState names the shape of the next CBOR data item without
// consuming it, mirroring the original C library's
// cardano_cbor_reader_state_t naming.
type ReaderState int

const (
	StateUndefined ReaderState = iota
	StateUnsignedInteger
	StateNegativeInteger
	StateByteString
	StateByteStringIndefiniteStart
	StateTextString
	StateTextStringIndefiniteStart
	StateStartArray
	StateStartIndefiniteArray
	StateEndArray
	StateStartMap
	StateStartIndefiniteMap
	StateEndMap
	StateTag
	StateBoolean
	StateNull
	StateDouble
	StateSimpleValue
	StateEndOfData
)

func (s ReaderState) String() string {
	switch s {
	case StateUnsignedInteger:
		return "unsigned_int"
	case StateNegativeInteger:
		return "negative_int"
	case StateByteString:
		return "byte_string"
	case StateByteStringIndefiniteStart:
		return "byte_string_indefinite_start"
	case StateTextString:
		return "text_string"
	case StateTextStringIndefiniteStart:
		return "text_string_indefinite_start"
	case StateStartArray:
		return "start_array"
	case StateStartIndefiniteArray:
		return "start_indefinite_array"
	case StateEndArray:
		return "end_array"
	case StateStartMap:
		return "start_map"
	case StateStartIndefiniteMap:
		return "start_indefinite_map"
	case StateEndMap:
		return "end_map"
	case StateTag:
		return "tag"
	case StateBoolean:
		return "boolean"
	case StateNull:
		return "null"
	case StateDouble:
		return "float"
	case StateSimpleValue:
		return "simple_value"
	case StateEndOfData:
		return "end_of_data"
	default:
		return "undefined"
	}
}

// Tag is a CBOR major-type-6 tag number. Named constants cover the
// tags the ledger actually emits; any other tag value is still valid
// to read/write, just without a named constant.
type Tag uint64

const (
	TagBignumPositive      Tag = 2
	TagBignumNegative      Tag = 3
	TagEncodedCbor         Tag = 24
	TagSet                 Tag = 258
	TagPlutusConstrGeneral Tag = 102
)

// PlutusConstrTagBase and PlutusConstrTagBaseExtended are the compact
// constructor-tag ranges (§3.4/§4.3): alt 0..6 -> 121+alt, alt 7..127
// -> 1280+alt-7, alt >= 128 -> general form tag 102.
const (
	PlutusConstrTagBase         = 121
	PlutusConstrTagBaseExtended = 1280
	PlutusConstrAltSmallMax     = 6
	PlutusConstrAltExtendedMax  = 127
)
