package txcore

import (
	"testing"

	"github.com/heliotx/cardano-txcore/cbor"
)

func hash32WithFirstByte(b byte) Hash32 {
	var h Hash32
	h[0] = b
	return h
}

// TestInputSetCanonicalOrdering is invariant #4 / E6: a freshly built
// input set emits sorted ascending by (txHash, index), wrapped in the
// tag-258 set form, and round-trips through decode.
func TestInputSetCanonicalOrdering(t *testing.T) {
	unordered := []TxInput{
		{TxHash: hash32WithFirstByte(3), Index: 0},
		{TxHash: hash32WithFirstByte(1), Index: 1},
		{TxHash: hash32WithFirstByte(1), Index: 0},
		{TxHash: hash32WithFirstByte(2), Index: 0},
	}

	encoded := encodeInputSet(unordered)

	r := cbor.NewReader(encoded)
	tag, isTag, err := r.PeekTag()
	if err != nil {
		t.Fatalf("PeekTag: %v", err)
	}
	if !isTag || tag != cbor.TagSet {
		t.Fatalf("expected tag-258 wrapper, got tag=%v isTag=%v", tag, isTag)
	}

	decoded, err := decodeInputSet(cbor.NewReader(encoded))
	if err != nil {
		t.Fatalf("decodeInputSet: %v", err)
	}

	want := []TxInput{
		{TxHash: hash32WithFirstByte(1), Index: 0},
		{TxHash: hash32WithFirstByte(1), Index: 1},
		{TxHash: hash32WithFirstByte(2), Index: 0},
		{TxHash: hash32WithFirstByte(3), Index: 0},
	}
	if len(decoded) != len(want) {
		t.Fatalf("got %d inputs, want %d", len(decoded), len(want))
	}
	for i := range want {
		if decoded[i] != want[i] {
			t.Errorf("input %d = %+v, want %+v", i, decoded[i], want[i])
		}
	}

	reEncoded := encodeInputSet(decoded)
	if string(reEncoded) != string(encoded) {
		t.Errorf("re-encoding the decoded (already sorted) set changed bytes")
	}
}

// TestInputSetAcceptsBareArrayForm checks decodeInputSet's leniency for
// a set that was not tag-258 wrapped on the wire (§4.4/§9).
func TestInputSetAcceptsBareArrayForm(t *testing.T) {
	w := cbor.NewWriter()
	w.WriteStartArray(2)
	TxInput{TxHash: hash32WithFirstByte(1), Index: 0}.EncodeCBOR(w)
	TxInput{TxHash: hash32WithFirstByte(2), Index: 0}.EncodeCBOR(w)

	decoded, err := decodeInputSet(cbor.NewReader(w.GetBytes()))
	if err != nil {
		t.Fatalf("decodeInputSet: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d inputs, want 2", len(decoded))
	}
}

// TestTransactionBodyHashPreservation is invariant #1: decoding and
// immediately re-encoding a body without touching any field reproduces
// the exact original bytes, via the cache.
func TestTransactionBodyHashPreservation(t *testing.T) {
	w := cbor.NewWriter()
	w.WriteStartMap(3)
	w.WriteUnsigned(0)
	w.WriteEncodedValue(encodeInputSet([]TxInput{{TxHash: hash32WithFirstByte(9), Index: 2}}))
	w.WriteUnsigned(1)
	w.WriteStartArray(0)
	w.WriteUnsigned(2)
	w.WriteUnsigned(1234)
	original := w.GetBytes()

	body, err := DecodeTransactionBody(cbor.NewReader(original))
	if err != nil {
		t.Fatalf("DecodeTransactionBody: %v", err)
	}

	out := cbor.NewWriter()
	body.EncodeCBOR(out)
	if string(out.GetBytes()) != string(original) {
		t.Errorf("re-encode without mutation changed bytes:\n got  %x\n want %x", out.GetBytes(), original)
	}
}

// TestTransactionBodyCacheInvalidation is invariant #2: after clearing
// the cache, a body that was already canonical re-encodes to the same
// bytes by rebuilding from fields.
func TestTransactionBodyCacheInvalidation(t *testing.T) {
	w := cbor.NewWriter()
	w.WriteStartMap(3)
	w.WriteUnsigned(0)
	w.WriteEncodedValue(encodeInputSet([]TxInput{{TxHash: hash32WithFirstByte(9), Index: 2}}))
	w.WriteUnsigned(1)
	w.WriteStartArray(0)
	w.WriteUnsigned(2)
	w.WriteUnsigned(1234)
	original := w.GetBytes()

	body, err := DecodeTransactionBody(cbor.NewReader(original))
	if err != nil {
		t.Fatalf("DecodeTransactionBody: %v", err)
	}

	body.InvalidateCache()
	out := cbor.NewWriter()
	body.EncodeCBOR(out)
	if string(out.GetBytes()) != string(original) {
		t.Errorf("re-encode after cache clear changed bytes:\n got  %x\n want %x", out.GetBytes(), original)
	}
}
