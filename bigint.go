package txcore

import "math/big"

// BigInt is an arbitrary-precision signed integer, used wherever Plutus
// data or CBOR admits values outside the 64-bit range. It is a thin
// alias over math/big.Int: CBOR I/O itself (the native-int vs. tagged
// bignum choice) lives in cbor.Writer.WriteBigInt/cbor.Reader.ReadBigInt,
// so this type only needs to carry the value around.
type BigInt struct {
	v *big.Int
}

// NewBigIntFromInt64 wraps a native int64.
func NewBigIntFromInt64(n int64) *BigInt { return &BigInt{v: big.NewInt(n)} }

// NewBigIntFromBig wraps an existing math/big.Int. The value is copied.
func NewBigIntFromBig(n *big.Int) *BigInt { return &BigInt{v: new(big.Int).Set(n)} }

// Big returns the underlying math/big.Int. Callers must not mutate it.
func (b *BigInt) Big() *big.Int { return b.v }

// IsInt64 reports whether the value fits in an int64.
func (b *BigInt) IsInt64() bool { return b.v.IsInt64() }

func (b *BigInt) Int64() int64 { return b.v.Int64() }

func (b *BigInt) Sign() int { return b.v.Sign() }

func (b *BigInt) Cmp(other *BigInt) int { return b.v.Cmp(other.v) }

func (b *BigInt) Add(other *BigInt) *BigInt {
	return &BigInt{v: new(big.Int).Add(b.v, other.v)}
}

func (b *BigInt) Sub(other *BigInt) *BigInt {
	return &BigInt{v: new(big.Int).Sub(b.v, other.v)}
}

func (b *BigInt) String() string { return b.v.String() }
