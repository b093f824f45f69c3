package txcore

import (
	"bytes"

	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
)

// TxInput identifies a transaction output by its producing transaction's
// hash and output index (§3.3).
type TxInput struct {
	TxHash Hash32
	Index  uint64
}

// Less orders inputs by (txHash bytes, index) ascending, the canonical
// sort used for the input set and reference-input set on emit (§4.4, E6).
func (a TxInput) Less(b TxInput) bool {
	if c := bytes.Compare(a.TxHash[:], b.TxHash[:]); c != 0 {
		return c < 0
	}
	return a.Index < b.Index
}

func (in TxInput) EncodeCBOR(w *cbor.Writer) {
	w.WriteStartArray(2)
	w.WriteBytestring(in.TxHash[:])
	w.WriteUnsigned(in.Index)
}

func DecodeTxInput(r *cbor.Reader) (TxInput, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return TxInput{}, err
	}
	if n != -1 && n != 2 {
		return TxInput{}, txerr.New(txerr.KindInvalidCborArraySize, "tx input must have 2 elements, got %d", n)
	}
	hashBytes, err := r.ReadBytestring()
	if err != nil {
		return TxInput{}, err
	}
	if len(hashBytes) != 32 {
		return TxInput{}, txerr.New(txerr.KindInvalidBlake2bHashSize, "tx input hash must be 32 bytes")
	}
	idx, err := r.ReadUnsigned()
	if err != nil {
		return TxInput{}, err
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return TxInput{}, err
		}
	}
	var h Hash32
	copy(h[:], hashBytes)
	return TxInput{TxHash: h, Index: idx}, nil
}

// Address is stored as its exact on-wire byte form; this core never
// re-parses address internals (§4.4).
type Address struct {
	bytes []byte
}

func NewAddress(b []byte) Address { return Address{bytes: append([]byte(nil), b...)} }
func (a Address) Bytes() []byte   { return a.bytes }

// DatumOption is either a datum hash or inline Plutus data, attached to
// an output to make it spendable by a script (§3.3, GLOSSARY Datum).
type DatumOption struct {
	IsHash bool
	Hash   Hash32
	Inline *PlutusData
}

func (d DatumOption) EncodeCBOR(w *cbor.Writer) {
	w.WriteStartArray(2)
	if d.IsHash {
		w.WriteUnsigned(0)
		w.WriteBytestring(d.Hash[:])
		return
	}
	w.WriteUnsigned(1)
	inner := cbor.NewWriter()
	d.Inline.EncodeCBOR(inner)
	w.WriteTag(cbor.TagEncodedCbor)
	w.WriteBytestring(inner.GetBytes())
}

func DecodeDatumOption(r *cbor.Reader) (*DatumOption, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	if n != -1 && n != 2 {
		return nil, txerr.New(txerr.KindInvalidCborArraySize, "datum option must have 2 elements, got %d", n)
	}
	kind, err := r.ReadUnsigned()
	if err != nil {
		return nil, err
	}
	var out DatumOption
	switch kind {
	case 0:
		hb, err := r.ReadBytestring()
		if err != nil {
			return nil, err
		}
		if len(hb) != 32 {
			return nil, txerr.New(txerr.KindInvalidBlake2bHashSize, "datum hash must be 32 bytes")
		}
		copy(out.Hash[:], hb)
		out.IsHash = true
	case 1:
		if _, err := r.ReadTag(); err != nil {
			return nil, err
		}
		inlineBytes, err := r.ReadBytestring()
		if err != nil {
			return nil, err
		}
		inner := cbor.NewReader(inlineBytes)
		d, err := DecodePlutusData(inner)
		if err != nil {
			return nil, err
		}
		out.Inline = d
	default:
		return nil, txerr.New(txerr.KindInvalidCborValue, "unknown datum option kind %d", kind)
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// TxOutput is an address, value, optional datum, and optional reference
// script (§3.3). It accepts both the legacy array form and the modern
// map-keyed form on decode; the form witnessed is preserved via C5.
//
// Fields are unexported so every mutation routes through a setter that
// invalidates the cache, the same guarantee RedeemerList gives its items.
type TxOutput struct {
	address   Address
	value     Value
	datum     *DatumOption
	scriptRef *Script

	legacyForm bool
	cache      OriginCache
}

func (o *TxOutput) InvalidateCache() { o.cache.InvalidateCache() }

// NewTxOutput builds a modern-form output.
func NewTxOutput(addr Address, value Value) *TxOutput {
	return &TxOutput{address: addr, value: value}
}

func (o *TxOutput) Address() Address { return o.address }
func (o *TxOutput) SetAddress(a Address) {
	o.address = a
	o.InvalidateCache()
}

func (o *TxOutput) Value() Value { return o.value }
func (o *TxOutput) SetValue(v Value) {
	o.value = v
	o.InvalidateCache()
}

func (o *TxOutput) Datum() *DatumOption { return o.datum }
func (o *TxOutput) SetDatum(d *DatumOption) {
	o.datum = d
	o.InvalidateCache()
}

func (o *TxOutput) ScriptRef() *Script { return o.scriptRef }
func (o *TxOutput) SetScriptRef(s *Script) {
	o.scriptRef = s
	o.InvalidateCache()
}

func (o *TxOutput) EncodeCBOR(w *cbor.Writer) {
	if cached, ok := o.cache.OriginalBytes(); ok {
		w.WriteEncodedValue(cached)
		return
	}
	if o.legacyForm {
		o.encodeLegacy(w)
		return
	}
	o.encodeModern(w)
}

func (o *TxOutput) encodeLegacy(w *cbor.Writer) {
	n := 2
	if o.datum != nil && o.datum.IsHash {
		n = 3
	}
	w.WriteStartArray(n)
	w.WriteBytestring(o.address.bytes)
	o.value.EncodeCBOR(w)
	if n == 3 {
		w.WriteBytestring(o.datum.Hash[:])
	}
}

func (o *TxOutput) encodeModern(w *cbor.Writer) {
	fields := map[int][]byte{}
	addrW := cbor.NewWriter()
	addrW.WriteBytestring(o.address.bytes)
	fields[0] = addrW.GetBytes()

	valW := cbor.NewWriter()
	o.value.EncodeCBOR(valW)
	fields[1] = valW.GetBytes()

	if o.datum != nil {
		datW := cbor.NewWriter()
		o.datum.EncodeCBOR(datW)
		fields[2] = datW.GetBytes()
	}
	if o.scriptRef != nil {
		refW := cbor.NewWriter()
		inner := cbor.NewWriter()
		o.scriptRef.EncodeCBOR(inner)
		refW.WriteTag(cbor.TagEncodedCbor)
		refW.WriteBytestring(inner.GetBytes())
		fields[3] = refW.GetBytes()
	}
	writeAscendingKeyMap(w, fields)
}

// writeAscendingKeyMap emits a map with strictly ascending numeric keys
// (§4.4), splicing each pre-encoded value verbatim.
func writeAscendingKeyMap(w *cbor.Writer, fields map[int][]byte) {
	keys := sortedIntKeys(fields)
	w.WriteStartMap(len(keys))
	for _, k := range keys {
		w.WriteUnsigned(uint64(k))
		w.WriteEncodedValue(fields[k])
	}
}

func sortedIntKeys(m map[int][]byte) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// DecodeTxOutput accepts both the legacy array and modern map forms,
// remembering which one was seen for hash-preserving re-encoding.
func DecodeTxOutput(r *cbor.Reader) (*TxOutput, error) {
	start := r.Clone()
	state, err := r.PeekState()
	if err != nil {
		return nil, err
	}

	var out *TxOutput
	switch state {
	case cbor.StateStartArray, cbor.StateStartIndefiniteArray:
		out, err = decodeTxOutputLegacy(r)
	case cbor.StateStartMap, cbor.StateStartIndefiniteMap:
		out, err = decodeTxOutputModern(r)
	default:
		return nil, txerr.New(txerr.KindUnexpectedCborType, "unexpected cbor item %s for tx output", state)
	}
	if err != nil {
		return nil, err
	}
	consumed := start.BytesRemaining() - r.BytesRemaining()
	out.cache.SetOriginalBytes(start.GetRemainder()[:consumed])
	return out, nil
}

func decodeTxOutputLegacy(r *cbor.Reader) (*TxOutput, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	addrBytes, err := r.ReadBytestring()
	if err != nil {
		return nil, err
	}
	value, err := DecodeValue(r)
	if err != nil {
		return nil, err
	}
	out := &TxOutput{address: NewAddress(addrBytes), value: value, legacyForm: true}
	if n == 3 || (n == -1 && func() bool { s, _ := r.PeekState(); return s != cbor.StateEndArray }()) {
		hb, err := r.ReadBytestring()
		if err != nil {
			return nil, err
		}
		var h Hash32
		copy(h[:], hb)
		out.datum = &DatumOption{IsHash: true, Hash: h}
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeTxOutputModern(r *cbor.Reader) (*TxOutput, error) {
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	out := &TxOutput{}
	count := 0
	for {
		if n == -1 {
			s, err := r.PeekState()
			if err != nil {
				return nil, err
			}
			if s == cbor.StateEndMap {
				break
			}
		} else if int64(count) >= n {
			break
		}
		key, err := r.ReadUnsigned()
		if err != nil {
			return nil, err
		}
		switch key {
		case 0:
			addrBytes, err := r.ReadBytestring()
			if err != nil {
				return nil, err
			}
			out.address = NewAddress(addrBytes)
		case 1:
			v, err := DecodeValue(r)
			if err != nil {
				return nil, err
			}
			out.value = v
		case 2:
			d, err := DecodeDatumOption(r)
			if err != nil {
				return nil, err
			}
			out.datum = d
		case 3:
			if _, err := r.ReadTag(); err != nil {
				return nil, err
			}
			sb, err := r.ReadBytestring()
			if err != nil {
				return nil, err
			}
			inner := cbor.NewReader(sb)
			s, err := DecodeScript(inner)
			if err != nil {
				return nil, err
			}
			out.scriptRef = s
		default:
			if err := r.SkipValue(); err != nil {
				return nil, err
			}
		}
		count++
	}
	if n == -1 {
		if err := r.ReadEndMap(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UTXO pairs a resolved input with its output, the resolution target
// for fee calculation (§3.3).
type UTXO struct {
	Input  TxInput
	Output *TxOutput
}

// placeholderCoinBytes is the fixed-width coin encoding substituted into
// an output's value for minimum-ada sizing (§4.6): a positive bignum
// (tag 2) over a 5-byte magnitude, 7 bytes in all. A coin of 2^32 or more
// encodes as a plain unsigned integer in 9 bytes, longer than this.
var placeholderCoinBytes = func() []byte {
	w := cbor.NewWriter()
	w.WriteTag(cbor.TagBignumPositive)
	w.WriteBytestring([]byte{0xff, 0xff, 0xff, 0xff, 0xff})
	return w.GetBytes()
}()

// EncodeCBORWithMaxCoin serializes the output with its coin field replaced
// by placeholderCoinBytes, preserving whichever form (legacy array or
// modern map) it was built or decoded in and leaving the receiver
// untouched. The fee engine uses this to measure an output's size for
// the minimum-ada formula (§4.6).
func (o *TxOutput) EncodeCBORWithMaxCoin(w *cbor.Writer) {
	if o.legacyForm {
		o.encodeLegacyWithCoinBytes(w, placeholderCoinBytes)
		return
	}
	o.encodeModernWithCoinBytes(w, placeholderCoinBytes)
}

func (o *TxOutput) encodeLegacyWithCoinBytes(w *cbor.Writer, coinBytes []byte) {
	n := 2
	if o.datum != nil && o.datum.IsHash {
		n = 3
	}
	w.WriteStartArray(n)
	w.WriteBytestring(o.address.bytes)
	o.value.encodeCBORWithCoinBytes(w, coinBytes)
	if n == 3 {
		w.WriteBytestring(o.datum.Hash[:])
	}
}

func (o *TxOutput) encodeModernWithCoinBytes(w *cbor.Writer, coinBytes []byte) {
	fields := map[int][]byte{}
	addrW := cbor.NewWriter()
	addrW.WriteBytestring(o.address.bytes)
	fields[0] = addrW.GetBytes()

	valW := cbor.NewWriter()
	o.value.encodeCBORWithCoinBytes(valW, coinBytes)
	fields[1] = valW.GetBytes()

	if o.datum != nil {
		datW := cbor.NewWriter()
		o.datum.EncodeCBOR(datW)
		fields[2] = datW.GetBytes()
	}
	if o.scriptRef != nil {
		refW := cbor.NewWriter()
		inner := cbor.NewWriter()
		o.scriptRef.EncodeCBOR(inner)
		refW.WriteTag(cbor.TagEncodedCbor)
		refW.WriteBytestring(inner.GetBytes())
		fields[3] = refW.GetBytes()
	}
	writeAscendingKeyMap(w, fields)
}
