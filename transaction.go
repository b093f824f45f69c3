package txcore

import (
	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
)

// Transaction is a transaction body, its witness set, a validity flag
// (used post-Alonzo to mark a transaction as intentionally invalid for
// collateral-only script failure handling), and optional auxiliary
// data (§3.7).
//
// Fields are unexported: every mutation goes through a setter that wires
// the new subtree's cache to this transaction (§4.5/§9's upward
// propagation) and invalidates the transaction's own cache.
type Transaction struct {
	body          *TransactionBody
	witnessSet    *TransactionWitnessSet
	isValid       bool
	auxiliaryData *AuxiliaryData

	cache OriginCache
}

// NewTransaction builds a valid transaction from its body and witness set,
// wiring both subtrees' caches to propagate invalidation upward.
func NewTransaction(body *TransactionBody, witnessSet *TransactionWitnessSet) *Transaction {
	t := &Transaction{body: body, witnessSet: witnessSet, isValid: true}
	body.cache.SetParent(t)
	witnessSet.cache.SetParent(t)
	return t
}

func (t *Transaction) InvalidateCache() { t.cache.InvalidateCache() }

func (t *Transaction) Body() *TransactionBody            { return t.body }
func (t *Transaction) WitnessSet() *TransactionWitnessSet { return t.witnessSet }
func (t *Transaction) IsValid() bool                     { return t.isValid }
func (t *Transaction) AuxiliaryData() *AuxiliaryData     { return t.auxiliaryData }

// SetBody replaces the transaction body, wiring its cache to this
// transaction so a later field mutation on the body also invalidates tx.
func (t *Transaction) SetBody(b *TransactionBody) {
	b.cache.SetParent(t)
	t.body = b
	t.InvalidateCache()
}

// SetWitnessSet replaces the witness set, wiring its cache to this transaction.
func (t *Transaction) SetWitnessSet(ws *TransactionWitnessSet) {
	ws.cache.SetParent(t)
	t.witnessSet = ws
	t.InvalidateCache()
}

func (t *Transaction) SetIsValid(v bool) {
	t.isValid = v
	t.InvalidateCache()
}

// SetAuxiliaryData attaches (or clears, with nil) the optional auxiliary
// data block, wiring its cache to this transaction when non-nil.
func (t *Transaction) SetAuxiliaryData(ad *AuxiliaryData) {
	if ad != nil {
		ad.cache.SetParent(t)
	}
	t.auxiliaryData = ad
	t.InvalidateCache()
}

// Hash returns the Blake2b-256 digest of the body's canonical encoding,
// preferring the cached body bytes when present so that decoding then
// hashing a transaction never invalidates its own signature (§3.7).
func (t *Transaction) Hash() (Hash32, error) {
	w := cbor.NewWriter()
	t.body.EncodeCBOR(w)
	return Blake2b256(w.GetBytes())
}

func (t *Transaction) EncodeCBOR(w *cbor.Writer) {
	if cached, ok := t.cache.OriginalBytes(); ok {
		w.WriteEncodedValue(cached)
		return
	}
	w.WriteStartArray(4)
	t.body.EncodeCBOR(w)
	t.witnessSet.EncodeCBOR(w)
	w.WriteBool(t.isValid)
	if t.auxiliaryData == nil {
		w.WriteNull()
		return
	}
	t.auxiliaryData.EncodeCBOR(w)
}

// ToCBOR serializes the transaction, replaying the cache if valid.
func (t *Transaction) ToCBOR() []byte {
	w := cbor.NewWriter()
	t.EncodeCBOR(w)
	return w.GetBytes()
}

// DecodeTransaction reads the 4-element [body, witness_set, is_valid,
// auxiliary_data] array and captures the whole transaction's original
// bytes for hash-preserving re-encoding (§4.5).
func DecodeTransaction(r *cbor.Reader) (*Transaction, error) {
	start := r.Clone()
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	if n != -1 && n != 4 {
		return nil, txerr.New(txerr.KindInvalidCborArraySize, "transaction must have 4 elements, got %d", n)
	}

	body, err := DecodeTransactionBody(r)
	if err != nil {
		return nil, err
	}
	ws, err := DecodeTransactionWitnessSet(r)
	if err != nil {
		return nil, err
	}
	isValid, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	state, err := r.PeekState()
	if err != nil {
		return nil, err
	}
	var aux *AuxiliaryData
	if state == cbor.StateNull {
		if err := r.ReadNull(); err != nil {
			return nil, err
		}
	} else {
		aux, err = DecodeAuxiliaryData(r)
		if err != nil {
			return nil, err
		}
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}

	tx := &Transaction{body: body, witnessSet: ws, isValid: isValid, auxiliaryData: aux}
	body.cache.SetParent(tx)
	ws.cache.SetParent(tx)
	if aux != nil {
		aux.cache.SetParent(tx)
	}

	consumed := start.BytesRemaining() - r.BytesRemaining()
	tx.cache.SetOriginalBytes(start.GetRemainder()[:consumed])
	return tx, nil
}
