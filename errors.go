package txcore

import "github.com/heliotx/cardano-txcore/txerr"

// Kind and Error re-export txerr's taxonomy at the package callers
// actually import, so application code writes txcore.KindDecoding
// instead of reaching into the internal txerr package directly.
type (
	Kind  = txerr.Kind
	Error = txerr.Error
)

const (
	KindSuccess                = txerr.KindSuccess
	KindPointerIsNull          = txerr.KindPointerIsNull
	KindMemoryAllocationFailed = txerr.KindMemoryAllocationFailed
	KindDecoding               = txerr.KindDecoding
	KindUnexpectedCborType     = txerr.KindUnexpectedCborType
	KindInvalidCborArraySize   = txerr.KindInvalidCborArraySize
	KindInvalidCborValue       = txerr.KindInvalidCborValue
	KindInvalidArgument        = txerr.KindInvalidArgument
	KindInvalidBlake2bHashSize = txerr.KindInvalidBlake2bHashSize
	KindInvalidPlutusCostModel = txerr.KindInvalidPlutusCostModel
	KindInvalidAddressFormat   = txerr.KindInvalidAddressFormat
	KindIndexOutOfBounds       = txerr.KindIndexOutOfBounds
	KindOutOfBoundsMemoryRead  = txerr.KindOutOfBoundsMemoryRead
	KindInsufficientBufferSize = txerr.KindInsufficientBufferSize
	KindElementNotFound        = txerr.KindElementNotFound
	KindRequiredUtxoMissing    = txerr.KindRequiredUtxoMissing
)

// KindOf extracts the Kind from an error produced by this module.
func KindOf(err error) Kind { return txerr.Of(err) }
