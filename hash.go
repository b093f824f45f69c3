package txcore

import (
	"encoding/hex"

	"github.com/heliotx/cardano-txcore/bech32"
	"github.com/heliotx/cardano-txcore/txerr"
	"golang.org/x/crypto/blake2b"
)

// Hash28 is a 28-byte Blake2b digest, used for policy ids, key hashes and
// script hashes throughout the ledger.
type Hash28 [28]byte

// Hash32 is a 32-byte Blake2b digest, used for transaction ids and
// auxiliary-data hashes.
type Hash32 [32]byte

// Blake2b224 computes the keyless 28-byte Blake2b digest of data.
func Blake2b224(data []byte) (Hash28, error) {
	sum, err := blake2bSum(data, 28)
	if err != nil {
		return Hash28{}, err
	}
	var h Hash28
	copy(h[:], sum)
	return h, nil
}

// Blake2b256 computes the keyless 32-byte Blake2b digest of data.
func Blake2b256(data []byte) (Hash32, error) {
	sum, err := blake2bSum(data, 32)
	if err != nil {
		return Hash32{}, err
	}
	var h Hash32
	copy(h[:], sum)
	return h, nil
}

func blake2bSum(data []byte, size int) ([]byte, error) {
	h, err := blake2b.New(size, nil)
	if err != nil {
		return nil, txerr.Wrap(txerr.KindInvalidBlake2bHashSize, err, "blake2b-%d", size*8)
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// NewHash28FromHex parses a hex-encoded 28-byte hash.
func NewHash28FromHex(s string) (Hash28, error) {
	bs, err := hex.DecodeString(s)
	if err != nil {
		return Hash28{}, txerr.Wrap(txerr.KindDecoding, err, "invalid hex")
	}
	if len(bs) != 28 {
		return Hash28{}, txerr.New(txerr.KindInvalidBlake2bHashSize, "expected 28 bytes, got %d", len(bs))
	}
	var h Hash28
	copy(h[:], bs)
	return h, nil
}

// NewHash32FromHex parses a hex-encoded 32-byte hash.
func NewHash32FromHex(s string) (Hash32, error) {
	bs, err := hex.DecodeString(s)
	if err != nil {
		return Hash32{}, txerr.Wrap(txerr.KindDecoding, err, "invalid hex")
	}
	if len(bs) != 32 {
		return Hash32{}, txerr.New(txerr.KindInvalidBlake2bHashSize, "expected 32 bytes, got %d", len(bs))
	}
	var h Hash32
	copy(h[:], bs)
	return h, nil
}

func (h Hash28) Bytes() []byte { return h[:] }
func (h Hash32) Bytes() []byte { return h[:] }

func (h Hash28) Hex() string { return hex.EncodeToString(h[:]) }
func (h Hash32) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash28) String() string { return h.Hex() }
func (h Hash32) String() string { return h.Hex() }

// Bech32 renders the hash with the given human-readable prefix, e.g.
// "pool" or "script".
func (h Hash28) Bech32(hrp string) (string, error) {
	return bech32.Encode(hrp, h[:], bech32.Bech32)
}

func (h Hash32) Bech32(hrp string) (string, error) {
	return bech32.Encode(hrp, h[:], bech32.Bech32)
}
