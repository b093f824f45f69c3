package txcore

import (
	"bytes"
	"math/big"

	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
)

// PlutusDataKind tags which alternative of the PlutusData sum is held.
type PlutusDataKind int

const (
	PlutusKindConstr PlutusDataKind = iota
	PlutusKindMap
	PlutusKindList
	PlutusKindInteger
	PlutusKindBoundedBytes
)

// PlutusDataPair is one (key, value) entry of a Plutus Map; order is
// preserved and not deduplicated (§3.4).
type PlutusDataPair struct {
	Key   PlutusData
	Value PlutusData
}

// PlutusData is the untyped IR Plutus scripts see on-chain: a tagged sum
// over {constr, map, list, integer, bounded bytes} (§3.4). The decoder
// remembers whether a list/map/constr-fields was written definite or
// indefinite, because the encoder must reproduce the same form for the
// transaction hash to stay stable.
type PlutusData struct {
	Kind PlutusDataKind

	ConstrAlt    uint64
	ConstrFields []PlutusData

	MapEntries []PlutusDataPair

	List []PlutusData

	Integer *big.Int

	Bytes []byte

	// indefinite records the form witnessed on decode for whichever
	// collection this value holds (map/list/constr-fields); a freshly
	// constructed value defaults to definite form.
	indefinite bool
	// constrGeneralIndefiniteWrapper distinguishes, for a >=128 general
	// form constr, the d8669f...ff indefinite-array wrapper from the
	// d866... definite two-element array wrapper (§9).
	constrGeneralIndefiniteWrapper bool

	cache OriginCache
}

func (d *PlutusData) InvalidateCache() { d.cache.InvalidateCache() }

// NewPlutusConstr builds a constructor value with definite-form fields.
func NewPlutusConstr(alt uint64, fields []PlutusData) PlutusData {
	return PlutusData{Kind: PlutusKindConstr, ConstrAlt: alt, ConstrFields: fields}
}

func NewPlutusMap(entries []PlutusDataPair) PlutusData {
	return PlutusData{Kind: PlutusKindMap, MapEntries: entries}
}

func NewPlutusList(items []PlutusData) PlutusData {
	return PlutusData{Kind: PlutusKindList, List: items}
}

func NewPlutusInteger(v *big.Int) PlutusData {
	return PlutusData{Kind: PlutusKindInteger, Integer: v}
}

func NewPlutusBoundedBytes(b []byte) PlutusData {
	return PlutusData{Kind: PlutusKindBoundedBytes, Bytes: append([]byte(nil), b...)}
}

// Equal reports structural, order-sensitive equality (§4.3): Plutus
// treats map and list order as significant at the script level.
func (d PlutusData) Equal(other PlutusData) bool {
	if d.Kind != other.Kind {
		return false
	}
	switch d.Kind {
	case PlutusKindConstr:
		if d.ConstrAlt != other.ConstrAlt || len(d.ConstrFields) != len(other.ConstrFields) {
			return false
		}
		for i := range d.ConstrFields {
			if !d.ConstrFields[i].Equal(other.ConstrFields[i]) {
				return false
			}
		}
		return true
	case PlutusKindMap:
		if len(d.MapEntries) != len(other.MapEntries) {
			return false
		}
		for i := range d.MapEntries {
			if !d.MapEntries[i].Key.Equal(other.MapEntries[i].Key) || !d.MapEntries[i].Value.Equal(other.MapEntries[i].Value) {
				return false
			}
		}
		return true
	case PlutusKindList:
		if len(d.List) != len(other.List) {
			return false
		}
		for i := range d.List {
			if !d.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case PlutusKindInteger:
		return d.Integer.Cmp(other.Integer) == 0
	case PlutusKindBoundedBytes:
		return bytes.Equal(d.Bytes, other.Bytes)
	default:
		return false
	}
}

// EncodeCBOR writes the value, preferring the cached original bytes
// when present and valid (§4.5).
func (d *PlutusData) EncodeCBOR(w *cbor.Writer) {
	if cached, ok := d.cache.OriginalBytes(); ok {
		w.WriteEncodedValue(cached)
		return
	}
	encodePlutusData(w, *d)
}

func encodePlutusData(w *cbor.Writer, d PlutusData) {
	switch d.Kind {
	case PlutusKindConstr:
		encodeConstr(w, d)
	case PlutusKindMap:
		if d.indefinite {
			w.WriteStartIndefiniteMap()
		} else {
			w.WriteStartMap(len(d.MapEntries))
		}
		for _, e := range d.MapEntries {
			encodePlutusData(w, e.Key)
			encodePlutusData(w, e.Value)
		}
		if d.indefinite {
			w.WriteEndIndefiniteMap()
		}
	case PlutusKindList:
		if d.indefinite {
			w.WriteStartIndefiniteArray()
		} else {
			w.WriteStartArray(len(d.List))
		}
		for _, item := range d.List {
			encodePlutusData(w, item)
		}
		if d.indefinite {
			w.WriteEndIndefiniteArray()
		}
	case PlutusKindInteger:
		w.WriteBigInt(d.Integer)
	case PlutusKindBoundedBytes:
		if len(d.Bytes) > 64 {
			w.WriteIndefiniteBytestringChunked(d.Bytes)
		} else {
			w.WriteBytestring(d.Bytes)
		}
	}
}

// encodeConstr implements the §4.3 tag ladder: compact tags for
// alt in 0..127, general form (tag 102 wrapping [alt, fields]) otherwise.
func encodeConstr(w *cbor.Writer, d PlutusData) {
	switch {
	case d.ConstrAlt <= cbor.PlutusConstrAltSmallMax:
		w.WriteTag(cbor.Tag(cbor.PlutusConstrTagBase + d.ConstrAlt))
		encodeConstrFields(w, d)
	case d.ConstrAlt <= cbor.PlutusConstrAltExtendedMax:
		w.WriteTag(cbor.Tag(cbor.PlutusConstrTagBaseExtended + d.ConstrAlt - 7))
		encodeConstrFields(w, d)
	default:
		w.WriteTag(cbor.TagPlutusConstrGeneral)
		if d.constrGeneralIndefiniteWrapper {
			w.WriteStartIndefiniteArray()
			w.WriteUnsigned(d.ConstrAlt)
			encodeConstrFields(w, d)
			w.WriteEndIndefiniteArray()
		} else {
			w.WriteStartArray(2)
			w.WriteUnsigned(d.ConstrAlt)
			encodeConstrFields(w, d)
		}
	}
}

func encodeConstrFields(w *cbor.Writer, d PlutusData) {
	if d.indefinite {
		w.WriteStartIndefiniteArray()
	} else {
		w.WriteStartArray(len(d.ConstrFields))
	}
	for _, f := range d.ConstrFields {
		encodePlutusData(w, f)
	}
	if d.indefinite {
		w.WriteEndIndefiniteArray()
	}
}

// DecodePlutusData reads one Plutus data value, capturing its original
// bytes into the cache for hash-preserving re-encoding.
func DecodePlutusData(r *cbor.Reader) (*PlutusData, error) {
	start := r.Clone()
	rr := r.Clone()
	d, err := decodePlutusDataValue(rr)
	if err != nil {
		return nil, err
	}
	consumed := start.BytesRemaining() - rr.BytesRemaining()
	origBuf := start.GetRemainder()[:consumed]
	d.cache.SetOriginalBytes(origBuf)

	// advance the caller's reader past this value too.
	if _, err := r.ReadEncodedValue(); err != nil {
		return nil, err
	}
	return d, nil
}

func decodePlutusDataValue(r *cbor.Reader) (*PlutusData, error) {
	state, err := r.PeekState()
	if err != nil {
		return nil, err
	}

	switch state {
	case cbor.StateTag:
		return decodePlutusConstrOrTagged(r)
	case cbor.StateUnsignedInteger, cbor.StateNegativeInteger:
		n, err := r.ReadBigInt()
		if err != nil {
			return nil, err
		}
		d := NewPlutusInteger(n)
		return &d, nil
	case cbor.StateByteString, cbor.StateByteStringIndefiniteStart:
		bs, err := r.ReadBytestring()
		if err != nil {
			return nil, err
		}
		d := NewPlutusBoundedBytes(bs)
		return &d, nil
	case cbor.StateStartArray, cbor.StateStartIndefiniteArray:
		return decodePlutusList(r)
	case cbor.StateStartMap, cbor.StateStartIndefiniteMap:
		return decodePlutusMap(r)
	default:
		return nil, txerr.New(txerr.KindUnexpectedCborType, "unexpected cbor item %s for plutus data", state)
	}
}

func decodePlutusList(r *cbor.Reader) (*PlutusData, error) {
	indefinite := mustPeekIndefiniteArray(r)
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	var items []PlutusData
	for {
		if n == -1 {
			state, err := r.PeekState()
			if err != nil {
				return nil, err
			}
			if state == cbor.StateEndArray {
				break
			}
		} else if int64(len(items)) >= n {
			break
		}
		item, err := decodePlutusDataValue(r)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return &PlutusData{Kind: PlutusKindList, List: items, indefinite: indefinite}, nil
}

func decodePlutusMap(r *cbor.Reader) (*PlutusData, error) {
	indefinite := mustPeekIndefiniteMap(r)
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	var entries []PlutusDataPair
	for {
		if n == -1 {
			state, err := r.PeekState()
			if err != nil {
				return nil, err
			}
			if state == cbor.StateEndMap {
				break
			}
		} else if int64(len(entries)) >= n {
			break
		}
		k, err := decodePlutusDataValue(r)
		if err != nil {
			return nil, err
		}
		v, err := decodePlutusDataValue(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, PlutusDataPair{Key: *k, Value: *v})
	}
	if n == -1 {
		if err := r.ReadEndMap(); err != nil {
			return nil, err
		}
	}
	return &PlutusData{Kind: PlutusKindMap, MapEntries: entries, indefinite: indefinite}, nil
}

func mustPeekIndefiniteArray(r *cbor.Reader) bool {
	s, _ := r.PeekState()
	return s == cbor.StateStartIndefiniteArray
}

func mustPeekIndefiniteMap(r *cbor.Reader) bool {
	s, _ := r.PeekState()
	return s == cbor.StateStartIndefiniteMap
}

func decodePlutusConstrOrTagged(r *cbor.Reader) (*PlutusData, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return nil, err
	}

	var alt uint64
	switch {
	case uint64(tag) >= cbor.PlutusConstrTagBase && uint64(tag) <= cbor.PlutusConstrTagBase+cbor.PlutusConstrAltSmallMax:
		alt = uint64(tag) - cbor.PlutusConstrTagBase
		return decodeConstrFieldsAfterTag(r, alt)
	case uint64(tag) >= cbor.PlutusConstrTagBaseExtended && uint64(tag) <= cbor.PlutusConstrTagBaseExtended+(cbor.PlutusConstrAltExtendedMax-7):
		alt = uint64(tag) - cbor.PlutusConstrTagBaseExtended + 7
		return decodeConstrFieldsAfterTag(r, alt)
	case tag == cbor.TagPlutusConstrGeneral:
		return decodeConstrGeneralForm(r)
	default:
		return nil, txerr.New(txerr.KindInvalidCborValue, "tag %d is not a recognized plutus constructor tag", tag)
	}
}

func decodeConstrFieldsAfterTag(r *cbor.Reader, alt uint64) (*PlutusData, error) {
	list, err := decodePlutusList(r)
	if err != nil {
		return nil, err
	}
	return &PlutusData{Kind: PlutusKindConstr, ConstrAlt: alt, ConstrFields: list.List, indefinite: list.indefinite}, nil
}

// decodeConstrGeneralForm accepts both the d86682... two-element array
// variant and the d8669f...ff indefinite-array variant (§9).
func decodeConstrGeneralForm(r *cbor.Reader) (*PlutusData, error) {
	wrapperIndefinite := mustPeekIndefiniteArray(r)
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	if n != -1 && n != 2 {
		return nil, txerr.New(txerr.KindInvalidCborArraySize, "general-form constr wrapper must have 2 elements, got %d", n)
	}
	alt, err := r.ReadUnsigned()
	if err != nil {
		return nil, err
	}
	fields, err := decodePlutusList(r)
	if err != nil {
		return nil, err
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return &PlutusData{
		Kind:                           PlutusKindConstr,
		ConstrAlt:                      alt,
		ConstrFields:                   fields.List,
		indefinite:                     fields.indefinite,
		constrGeneralIndefiniteWrapper: wrapperIndefinite,
	}, nil
}
