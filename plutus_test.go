package txcore

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/heliotx/cardano-txcore/cbor"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	bs, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad test hex %q: %v", s, err)
	}
	return bs
}

// TestPlutusConstrEmptyFields is E1.
func TestPlutusConstrEmptyFields(t *testing.T) {
	raw := mustDecodeHex(t, "d87980")
	r := cbor.NewReader(raw)
	d, err := DecodePlutusData(r)
	if err != nil {
		t.Fatalf("DecodePlutusData: %v", err)
	}
	if d.Kind != PlutusKindConstr || d.ConstrAlt != 0 || len(d.ConstrFields) != 0 {
		t.Fatalf("got kind=%v alt=%d fields=%d, want constr/0/0", d.Kind, d.ConstrAlt, len(d.ConstrFields))
	}

	w := cbor.NewWriter()
	d.EncodeCBOR(w)
	if got := w.GetHex(); got != "d87980" {
		t.Errorf("re-encode = %s, want d87980", got)
	}
}

// TestPlutusConstrIndefiniteFields is E2: decode an indefinite-length
// constr-fields array, re-encode with cache intact (same bytes), then
// clear the cache and re-encode again — still identical, since this
// form is already canonical.
func TestPlutusConstrIndefiniteFields(t *testing.T) {
	const want = "d8799f0102030405ff"
	raw := mustDecodeHex(t, want)
	r := cbor.NewReader(raw)
	d, err := DecodePlutusData(r)
	if err != nil {
		t.Fatalf("DecodePlutusData: %v", err)
	}
	if d.Kind != PlutusKindConstr || d.ConstrAlt != 0 {
		t.Fatalf("got kind=%v alt=%d, want constr/0", d.Kind, d.ConstrAlt)
	}
	wantInts := []int64{1, 2, 3, 4, 5}
	if len(d.ConstrFields) != len(wantInts) {
		t.Fatalf("got %d fields, want %d", len(d.ConstrFields), len(wantInts))
	}
	for i, f := range d.ConstrFields {
		if f.Kind != PlutusKindInteger || f.Integer.Int64() != wantInts[i] {
			t.Errorf("field %d = %v, want %d", i, f, wantInts[i])
		}
	}

	w := cbor.NewWriter()
	d.EncodeCBOR(w)
	if got := w.GetHex(); got != want {
		t.Errorf("re-encode with cache = %s, want %s", got, want)
	}

	d.InvalidateCache()
	w2 := cbor.NewWriter()
	d.EncodeCBOR(w2)
	if got := w2.GetHex(); got != want {
		t.Errorf("re-encode after cache clear = %s, want %s (already canonical)", got, want)
	}
}

// TestPlutusDataRoundTrip exercises the remaining alternatives (map,
// list, integer, bounded bytes) through decode and byte-exact re-encode.
func TestPlutusDataRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"empty map", "a0"},
		{"list of ints", "9f0102ff"},
		{"small negative int", "20"},
		{"bounded bytes", "43010203"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := mustDecodeHex(t, tt.hex)
			d, err := DecodePlutusData(cbor.NewReader(raw))
			if err != nil {
				t.Fatalf("DecodePlutusData: %v", err)
			}
			w := cbor.NewWriter()
			d.EncodeCBOR(w)
			if got := w.GetHex(); got != tt.hex {
				t.Errorf("re-encode = %s, want %s", got, tt.hex)
			}
		})
	}
}

func TestPlutusDataEqualIsOrderSensitive(t *testing.T) {
	a := NewPlutusList([]PlutusData{NewPlutusInteger(big.NewInt(1)), NewPlutusInteger(big.NewInt(2))})
	b := NewPlutusList([]PlutusData{NewPlutusInteger(big.NewInt(2)), NewPlutusInteger(big.NewInt(1))})
	if a.Equal(b) {
		t.Error("lists with swapped order compared equal")
	}
	if !a.Equal(a) {
		t.Error("value did not compare equal to itself")
	}
}
