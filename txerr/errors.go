// Package txerr is the shared error taxonomy (§7) for the Cardano
// transaction-construction core. It is its own package, rather than
// living in the root txcore package, because the cbor package sits
// below txcore in the import graph and needs the same typed errors.
package txerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy callers can switch on. Values are
// data, not types, so a single Error struct carries one of these.
type Kind int

const (
	KindSuccess Kind = iota
	KindPointerIsNull
	KindMemoryAllocationFailed
	KindDecoding
	KindUnexpectedCborType
	KindInvalidCborArraySize
	KindInvalidCborValue
	KindInvalidArgument
	KindInvalidBlake2bHashSize
	KindInvalidPlutusCostModel
	KindInvalidAddressFormat
	KindIndexOutOfBounds
	KindOutOfBoundsMemoryRead
	KindInsufficientBufferSize
	KindElementNotFound
	KindRequiredUtxoMissing
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindPointerIsNull:
		return "pointer_is_null"
	case KindMemoryAllocationFailed:
		return "memory_allocation_failed"
	case KindDecoding:
		return "decoding"
	case KindUnexpectedCborType:
		return "unexpected_cbor_type"
	case KindInvalidCborArraySize:
		return "invalid_cbor_array_size"
	case KindInvalidCborValue:
		return "invalid_cbor_value"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindInvalidBlake2bHashSize:
		return "invalid_blake2b_hash_size"
	case KindInvalidPlutusCostModel:
		return "invalid_plutus_cost_model"
	case KindInvalidAddressFormat:
		return "invalid_address_format"
	case KindIndexOutOfBounds:
		return "index_out_of_bounds"
	case KindOutOfBoundsMemoryRead:
		return "out_of_bounds_memory_read"
	case KindInsufficientBufferSize:
		return "insufficient_buffer_size"
	case KindElementNotFound:
		return "element_not_found"
	case KindRequiredUtxoMissing:
		return "required_utxo_missing"
	default:
		return "unknown"
	}
}

// Error is the typed failure every operation in this module returns
// through the normal error channel (§7: never panics, never logs).
// Detail is advisory, best-effort diagnostic text - callers should
// switch on Kind, not parse Detail.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// Of extracts the Kind from an error produced by this package, falling
// back to KindDecoding for foreign errors (e.g. a plain io error that
// bubbled up unwrapped).
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDecoding
}

// New builds an Error of the given kind with a formatted detail string.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind, chaining cause so
// errors.Unwrap/errors.Is still reach the original failure.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), cause: cause}
}
