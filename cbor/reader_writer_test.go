package cbor

import (
	"encoding/hex"
	"math/big"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	bs, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad test hex %q: %v", s, err)
	}
	return bs
}

func TestWriteUnsignedCanonicalHeads(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "00"},
		{23, "17"},
		{24, "1818"},
		{255, "18ff"},
		{256, "190100"},
		{65535, "19ffff"},
		{65536, "1a00010000"},
		{4294967296, "1b0000000100000000"},
	}
	for _, tt := range tests {
		w := NewWriter()
		w.WriteUnsigned(tt.n)
		if got := w.GetHex(); got != tt.want {
			t.Errorf("WriteUnsigned(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestSignedRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 23, -24, 24, -25, 1000, -1000} {
		w := NewWriter()
		w.WriteSigned(n)
		r := NewReader(w.GetBytes())
		got, err := r.ReadSigned()
		if err != nil {
			t.Fatalf("ReadSigned(%d): %v", n, err)
		}
		if got != n {
			t.Errorf("round trip %d -> %d", n, got)
		}
	}
}

func TestBigIntTaggedBignum(t *testing.T) {
	big1, _ := new(big.Int).SetString("18446744073709551616", 10) // 2^64
	w := NewWriter()
	w.WriteBigInt(big1)
	r := NewReader(w.GetBytes())
	got, err := r.ReadBigInt()
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(big1) != 0 {
		t.Errorf("got %s want %s", got, big1)
	}

	negBig, _ := new(big.Int).SetString("-18446744073709551617", 10) // -(2^64+1)
	w2 := NewWriter()
	w2.WriteBigInt(negBig)
	r2 := NewReader(w2.GetBytes())
	got2, err := r2.ReadBigInt()
	if err != nil {
		t.Fatal(err)
	}
	if got2.Cmp(negBig) != 0 {
		t.Errorf("got %s want %s", got2, negBig)
	}
}

func TestIndefiniteBytestringChunking(t *testing.T) {
	data := make([]byte, 130)
	for i := range data {
		data[i] = byte(i)
	}
	w := NewWriter()
	w.WriteIndefiniteBytestringChunked(data)
	r := NewReader(w.GetBytes())
	got, err := r.ReadBytestring()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("chunked round trip mismatch")
	}
}

func TestReadEncodedValuePreservesBytes(t *testing.T) {
	// d8799f0102030405ff - constr alt 0, fields [1,2,3,4,5], indefinite (E2).
	bs := mustHex(t, "d8799f0102030405ff")
	r := NewReader(bs)
	got, err := r.ReadEncodedValue()
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(got) != "d8799f0102030405ff" {
		t.Errorf("got %s", hex.EncodeToString(got))
	}
	if r.BytesRemaining() != 0 {
		t.Errorf("expected no bytes remaining, got %d", r.BytesRemaining())
	}
}

func TestSkipValueNestedIndefinite(t *testing.T) {
	// [_ 1, [2, 3], {_ 4: 5}] followed by a trailing byte we should not touch.
	w := NewWriter()
	w.WriteStartIndefiniteArray()
	w.WriteUnsigned(1)
	w.WriteStartArray(2)
	w.WriteUnsigned(2)
	w.WriteUnsigned(3)
	w.WriteStartIndefiniteMap()
	w.WriteUnsigned(4)
	w.WriteUnsigned(5)
	w.WriteEndIndefiniteMap()
	w.WriteEndIndefiniteArray()
	trailer := []byte{0x01}
	full := append(w.GetBytes(), trailer...)

	r := NewReader(full)
	if err := r.SkipValue(); err != nil {
		t.Fatal(err)
	}
	if r.BytesRemaining() != 1 {
		t.Fatalf("expected exactly the trailing byte left, got %d remaining", r.BytesRemaining())
	}
}

func TestArrayEndRequiresFullConsumption(t *testing.T) {
	w := NewWriter()
	w.WriteStartArray(2)
	w.WriteUnsigned(1)
	w.WriteUnsigned(2)

	r := NewReader(w.GetBytes())
	if _, err := r.ReadStartArray(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadUnsigned(); err != nil {
		t.Fatal(err)
	}
	if err := r.ReadEndArray(); err == nil {
		t.Fatal("expected error ending an array with an unread element")
	}
	if _, err := r.ReadUnsigned(); err != nil {
		t.Fatal(err)
	}
	if err := r.ReadEndArray(); err != nil {
		t.Fatalf("expected clean end after consuming both elements: %v", err)
	}
}
