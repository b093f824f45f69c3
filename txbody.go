package txcore

import (
	"sort"

	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
)

// Transaction body field codes (§3.7). Fields 6-10 cover the protocol
// parameter update, auxiliary-data hash, validity interval start, mint,
// and script-data hash that sit between withdrawals and collateral in
// the ledger's numbering; this core treats their payloads as opaque
// pre-encoded CBOR since nothing downstream of decode needs to inspect
// them structurally.
const (
	fieldInputs               = 0
	fieldOutputs              = 1
	fieldFee                  = 2
	fieldTTL                  = 3
	fieldCerts                = 4
	fieldWithdrawals          = 5
	fieldUpdate               = 6
	fieldAuxDataHash          = 7
	fieldValidityStart        = 8
	fieldMint                 = 9
	fieldScriptDataHash       = 10
	fieldCollateral           = 13
	fieldRequiredSigners      = 14
	fieldNetworkID            = 15
	fieldCollateralReturn     = 16
	fieldTotalCollateral      = 17
	fieldReferenceInputs      = 18
	fieldVotingProcedures     = 19
	fieldProposalProcedures   = 20
	fieldCurrentTreasuryValue = 21
	fieldDonation             = 22
)

// TransactionBody is the ordered map of transaction fields keyed by the
// fixed numeric field codes above (§3.7). Presence of an optional field
// is tracked by a nil/zero-length check; the encoder never writes an
// optional field that is logically unset, and always writes a required
// field even when its collection is empty (§4.4).
//
// Fields are unexported: every mutation goes through a Set/Add method so
// it cannot bypass InvalidateCache, mirroring RedeemerList's guarded
// items map (§4.5 — "each such operation clears the cache").
type TransactionBody struct {
	inputs      *OrderedSet[TxInput]
	outputs     []*TxOutput
	fee         uint64
	ttl         *uint64
	certs       []*Certificate
	withdrawals map[string]uint64 // reward account bytes (as string key) -> lovelace

	update         []byte // opaque pre-encoded field 6
	auxDataHash    *Hash32
	validityStart  *uint64
	mint           *MultiAsset
	scriptDataHash *Hash32

	collateral           *OrderedSet[TxInput]
	requiredSigners      []Hash28
	networkID            *uint8
	collateralReturn     *TxOutput
	totalCollateral      *uint64
	referenceInputs      *OrderedSet[TxInput]
	votingProcedures     *VotingProcedures
	proposalProcedures   []ProposalProcedure
	currentTreasuryValue *uint64
	donation             *uint64

	cache OriginCache
}

// NewTransactionBody builds a body from its three mandatory fields.
// Optional fields are attached afterward via the Set* methods.
func NewTransactionBody(inputs []TxInput, outputs []*TxOutput, fee uint64) *TransactionBody {
	b := &TransactionBody{
		inputs:  NewOrderedSet(inputs...),
		outputs: append([]*TxOutput(nil), outputs...),
		fee:     fee,
	}
	for _, o := range b.outputs {
		o.cache.SetParent(b)
	}
	return b
}

func (b *TransactionBody) InvalidateCache() { b.cache.InvalidateCache() }

func sortInputs(inputs []TxInput) []TxInput {
	out := append([]TxInput(nil), inputs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func orderedInputs(s *OrderedSet[TxInput]) []TxInput {
	if s == nil {
		return nil
	}
	return s.Items()
}

// Inputs returns the spending inputs in insertion order.
func (b *TransactionBody) Inputs() []TxInput { return orderedInputs(b.inputs) }

// SetInputs replaces the spending input set.
func (b *TransactionBody) SetInputs(inputs []TxInput) {
	b.inputs = NewOrderedSet(inputs...)
	b.InvalidateCache()
}

// AddInput appends a single spending input, ignoring a duplicate.
func (b *TransactionBody) AddInput(in TxInput) {
	if b.inputs == nil {
		b.inputs = NewOrderedSet[TxInput]()
	}
	if b.inputs.Add(in) {
		b.InvalidateCache()
	}
}

// Outputs returns the transaction outputs.
func (b *TransactionBody) Outputs() []*TxOutput { return append([]*TxOutput(nil), b.outputs...) }

// SetOutputs replaces the output list, wiring each output's cache to this
// body so a later mutation of an output also invalidates the body.
func (b *TransactionBody) SetOutputs(outputs []*TxOutput) {
	b.outputs = append([]*TxOutput(nil), outputs...)
	for _, o := range b.outputs {
		o.cache.SetParent(b)
	}
	b.InvalidateCache()
}

// AddOutput appends a single output.
func (b *TransactionBody) AddOutput(o *TxOutput) {
	o.cache.SetParent(b)
	b.outputs = append(b.outputs, o)
	b.InvalidateCache()
}

func (b *TransactionBody) Fee() uint64 { return b.fee }
func (b *TransactionBody) SetFee(fee uint64) {
	b.fee = fee
	b.InvalidateCache()
}

func (b *TransactionBody) TTL() *uint64 { return b.ttl }
func (b *TransactionBody) SetTTL(ttl uint64) {
	b.ttl = &ttl
	b.InvalidateCache()
}
func (b *TransactionBody) ClearTTL() {
	b.ttl = nil
	b.InvalidateCache()
}

func (b *TransactionBody) Certs() []*Certificate { return b.certs }
func (b *TransactionBody) SetCerts(certs []*Certificate) {
	b.certs = certs
	b.InvalidateCache()
}
func (b *TransactionBody) AddCert(c *Certificate) {
	b.certs = append(b.certs, c)
	b.InvalidateCache()
}

func (b *TransactionBody) Withdrawals() map[string]uint64 { return b.withdrawals }
func (b *TransactionBody) SetWithdrawals(w map[string]uint64) {
	b.withdrawals = w
	b.InvalidateCache()
}

func (b *TransactionBody) Update() []byte { return b.update }
func (b *TransactionBody) SetUpdate(raw []byte) {
	b.update = raw
	b.InvalidateCache()
}

func (b *TransactionBody) AuxDataHash() *Hash32 { return b.auxDataHash }
func (b *TransactionBody) SetAuxDataHash(h Hash32) {
	b.auxDataHash = &h
	b.InvalidateCache()
}

func (b *TransactionBody) ValidityStart() *uint64 { return b.validityStart }
func (b *TransactionBody) SetValidityStart(v uint64) {
	b.validityStart = &v
	b.InvalidateCache()
}

func (b *TransactionBody) Mint() *MultiAsset { return b.mint }
func (b *TransactionBody) SetMint(m *MultiAsset) {
	b.mint = m
	b.InvalidateCache()
}

func (b *TransactionBody) ScriptDataHash() *Hash32 { return b.scriptDataHash }
func (b *TransactionBody) SetScriptDataHash(h Hash32) {
	b.scriptDataHash = &h
	b.InvalidateCache()
}

// Collateral returns the collateral input set.
func (b *TransactionBody) Collateral() []TxInput { return orderedInputs(b.collateral) }
func (b *TransactionBody) SetCollateral(inputs []TxInput) {
	b.collateral = NewOrderedSet(inputs...)
	b.InvalidateCache()
}

func (b *TransactionBody) RequiredSigners() []Hash28 { return b.requiredSigners }
func (b *TransactionBody) SetRequiredSigners(s []Hash28) {
	b.requiredSigners = s
	b.InvalidateCache()
}

func (b *TransactionBody) NetworkID() *uint8 { return b.networkID }
func (b *TransactionBody) SetNetworkID(id uint8) {
	b.networkID = &id
	b.InvalidateCache()
}

func (b *TransactionBody) CollateralReturn() *TxOutput { return b.collateralReturn }
func (b *TransactionBody) SetCollateralReturn(o *TxOutput) {
	if o != nil {
		o.cache.SetParent(b)
	}
	b.collateralReturn = o
	b.InvalidateCache()
}

func (b *TransactionBody) TotalCollateral() *uint64 { return b.totalCollateral }
func (b *TransactionBody) SetTotalCollateral(v uint64) {
	b.totalCollateral = &v
	b.InvalidateCache()
}

// ReferenceInputs returns the reference input set.
func (b *TransactionBody) ReferenceInputs() []TxInput { return orderedInputs(b.referenceInputs) }
func (b *TransactionBody) SetReferenceInputs(inputs []TxInput) {
	b.referenceInputs = NewOrderedSet(inputs...)
	b.InvalidateCache()
}

func (b *TransactionBody) VotingProcedures() *VotingProcedures { return b.votingProcedures }
func (b *TransactionBody) SetVotingProcedures(vp *VotingProcedures) {
	b.votingProcedures = vp
	b.InvalidateCache()
}

func (b *TransactionBody) ProposalProcedures() []ProposalProcedure { return b.proposalProcedures }
func (b *TransactionBody) SetProposalProcedures(pp []ProposalProcedure) {
	b.proposalProcedures = pp
	b.InvalidateCache()
}

func (b *TransactionBody) CurrentTreasuryValue() *uint64 { return b.currentTreasuryValue }
func (b *TransactionBody) SetCurrentTreasuryValue(v uint64) {
	b.currentTreasuryValue = &v
	b.InvalidateCache()
}

func (b *TransactionBody) Donation() *uint64 { return b.donation }
func (b *TransactionBody) SetDonation(v uint64) {
	b.donation = &v
	b.InvalidateCache()
}

// EncodeCBOR replays the decode-time cache when present and clean
// (§4.5); otherwise it re-serializes from fields, applying the set-tag,
// lexicographic-ordering and optional-omission rules in §4.4.
func (b *TransactionBody) EncodeCBOR(w *cbor.Writer) {
	if cached, ok := b.cache.OriginalBytes(); ok {
		w.WriteEncodedValue(cached)
		return
	}

	fields := map[int][]byte{}

	fields[fieldInputs] = encodeInputSet(b.Inputs())

	outputs := b.outputs
	outW := cbor.NewWriter()
	outW.WriteStartArray(len(outputs))
	for _, o := range outputs {
		o.EncodeCBOR(outW)
	}
	fields[fieldOutputs] = outW.GetBytes()

	feeW := cbor.NewWriter()
	feeW.WriteUnsigned(b.fee)
	fields[fieldFee] = feeW.GetBytes()

	if b.ttl != nil {
		w2 := cbor.NewWriter()
		w2.WriteUnsigned(*b.ttl)
		fields[fieldTTL] = w2.GetBytes()
	}
	if len(b.certs) > 0 {
		w2 := cbor.NewWriter()
		w2.WriteStartArray(len(b.certs))
		for _, c := range b.certs {
			c.EncodeCBOR(w2)
		}
		fields[fieldCerts] = w2.GetBytes()
	}
	if len(b.withdrawals) > 0 {
		fields[fieldWithdrawals] = encodeWithdrawals(b.withdrawals)
	}
	if len(b.update) > 0 {
		fields[fieldUpdate] = b.update
	}
	if b.auxDataHash != nil {
		w2 := cbor.NewWriter()
		w2.WriteBytestring(b.auxDataHash[:])
		fields[fieldAuxDataHash] = w2.GetBytes()
	}
	if b.validityStart != nil {
		w2 := cbor.NewWriter()
		w2.WriteUnsigned(*b.validityStart)
		fields[fieldValidityStart] = w2.GetBytes()
	}
	if b.mint != nil && b.mint.Len() > 0 {
		w2 := cbor.NewWriter()
		encodeMultiAsset(w2, b.mint)
		fields[fieldMint] = w2.GetBytes()
	}
	if b.scriptDataHash != nil {
		w2 := cbor.NewWriter()
		w2.WriteBytestring(b.scriptDataHash[:])
		fields[fieldScriptDataHash] = w2.GetBytes()
	}
	if collateral := b.Collateral(); len(collateral) > 0 {
		fields[fieldCollateral] = encodeInputSet(collateral)
	}
	if len(b.requiredSigners) > 0 {
		sorted := append([]Hash28(nil), b.requiredSigners...)
		sort.Slice(sorted, func(i, j int) bool { return string(sorted[i][:]) < string(sorted[j][:]) })
		w2 := cbor.NewWriter()
		w2.WriteStartArray(len(sorted))
		for _, s := range sorted {
			w2.WriteBytestring(s[:])
		}
		fields[fieldRequiredSigners] = w2.GetBytes()
	}
	if b.networkID != nil {
		w2 := cbor.NewWriter()
		w2.WriteUnsigned(uint64(*b.networkID))
		fields[fieldNetworkID] = w2.GetBytes()
	}
	if b.collateralReturn != nil {
		w2 := cbor.NewWriter()
		b.collateralReturn.EncodeCBOR(w2)
		fields[fieldCollateralReturn] = w2.GetBytes()
	}
	if b.totalCollateral != nil {
		w2 := cbor.NewWriter()
		w2.WriteUnsigned(*b.totalCollateral)
		fields[fieldTotalCollateral] = w2.GetBytes()
	}
	if refs := b.ReferenceInputs(); len(refs) > 0 {
		fields[fieldReferenceInputs] = encodeInputSet(refs)
	}
	if b.votingProcedures != nil {
		w2 := cbor.NewWriter()
		b.votingProcedures.EncodeCBOR(w2)
		fields[fieldVotingProcedures] = w2.GetBytes()
	}
	if len(b.proposalProcedures) > 0 {
		w2 := cbor.NewWriter()
		w2.WriteStartArray(len(b.proposalProcedures))
		for _, p := range b.proposalProcedures {
			p.EncodeCBOR(w2)
		}
		fields[fieldProposalProcedures] = w2.GetBytes()
	}
	if b.currentTreasuryValue != nil {
		w2 := cbor.NewWriter()
		w2.WriteUnsigned(*b.currentTreasuryValue)
		fields[fieldCurrentTreasuryValue] = w2.GetBytes()
	}
	if b.donation != nil {
		w2 := cbor.NewWriter()
		w2.WriteUnsigned(*b.donation)
		fields[fieldDonation] = w2.GetBytes()
	}

	writeAscendingKeyMap(w, fields)
}

// encodeInputSet emits a freshly built input set wrapped in the
// canonical tag-258 form, sorted lexicographically by (txHash, index)
// (§4.4, §9 "a freshly built set SHOULD emit the tagged form").
func encodeInputSet(inputs []TxInput) []byte {
	sorted := sortInputs(inputs)
	w := cbor.NewWriter()
	w.WriteTag(cbor.TagSet)
	w.WriteStartArray(len(sorted))
	for _, in := range sorted {
		in.EncodeCBOR(w)
	}
	return w.GetBytes()
}

func encodeWithdrawals(w map[string]uint64) []byte {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cw := cbor.NewWriter()
	cw.WriteStartMap(len(keys))
	for _, k := range keys {
		cw.WriteBytestring([]byte(k))
		cw.WriteUnsigned(w[k])
	}
	return cw.GetBytes()
}

// DecodeTransactionBody rejects duplicate map keys, unknown mandatory
// fields, and an empty-but-required inputs set (§4.4). The decoder
// accepts any key ordering the encoder happens to have produced.
func DecodeTransactionBody(r *cbor.Reader) (*TransactionBody, error) {
	start := r.Clone()
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	b := &TransactionBody{}
	seen := map[uint64]bool{}
	haveInputs, haveOutputs, haveFee := false, false, false
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
		if seen[key] {
			return nil, txerr.New(txerr.KindDecoding, "duplicate transaction body key %d", key)
		}
		seen[key] = true

		switch key {
		case fieldInputs:
			ins, err := decodeInputSet(r)
			if err != nil {
				return nil, err
			}
			if len(ins) == 0 {
				return nil, txerr.New(txerr.KindDecoding, "transaction body inputs set is empty")
			}
			b.inputs = NewOrderedSet(ins...)
			haveInputs = true
		case fieldOutputs:
			outs, err := decodeArrayOf(r, func(rr *cbor.Reader) (*TxOutput, error) { return DecodeTxOutput(rr) })
			if err != nil {
				return nil, err
			}
			b.outputs = outs
			haveOutputs = true
		case fieldFee:
			fee, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			b.fee = fee
			haveFee = true
		case fieldTTL:
			v, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			b.ttl = &v
		case fieldCerts:
			certs, err := decodeArrayOf(r, func(rr *cbor.Reader) (*Certificate, error) { return DecodeCertificate(rr) })
			if err != nil {
				return nil, err
			}
			b.certs = certs
		case fieldWithdrawals:
			wd, err := decodeWithdrawalsMap(r)
			if err != nil {
				return nil, err
			}
			b.withdrawals = wd
		case fieldUpdate:
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return nil, err
			}
			b.update = raw
		case fieldAuxDataHash:
			hb, err := r.ReadBytestring()
			if err != nil {
				return nil, err
			}
			var h Hash32
			copy(h[:], hb)
			b.auxDataHash = &h
		case fieldValidityStart:
			v, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			b.validityStart = &v
		case fieldMint:
			ma, err := decodeMultiAsset(r)
			if err != nil {
				return nil, err
			}
			b.mint = ma
		case fieldScriptDataHash:
			hb, err := r.ReadBytestring()
			if err != nil {
				return nil, err
			}
			var h Hash32
			copy(h[:], hb)
			b.scriptDataHash = &h
		case fieldCollateral:
			ins, err := decodeInputSet(r)
			if err != nil {
				return nil, err
			}
			b.collateral = NewOrderedSet(ins...)
		case fieldRequiredSigners:
			sig, err := decodeArrayOf(r, func(rr *cbor.Reader) (Hash28, error) {
				hb, err := rr.ReadBytestring()
				if err != nil {
					return Hash28{}, err
				}
				var h Hash28
				copy(h[:], hb)
				return h, nil
			})
			if err != nil {
				return nil, err
			}
			b.requiredSigners = sig
		case fieldNetworkID:
			v, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			nid := uint8(v)
			b.networkID = &nid
		case fieldCollateralReturn:
			out, err := DecodeTxOutput(r)
			if err != nil {
				return nil, err
			}
			b.collateralReturn = out
		case fieldTotalCollateral:
			v, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			b.totalCollateral = &v
		case fieldReferenceInputs:
			ins, err := decodeInputSet(r)
			if err != nil {
				return nil, err
			}
			b.referenceInputs = NewOrderedSet(ins...)
		case fieldVotingProcedures:
			vp, err := DecodeVotingProcedures(r)
			if err != nil {
				return nil, err
			}
			b.votingProcedures = vp
		case fieldProposalProcedures:
			pp, err := decodeArrayOf(r, func(rr *cbor.Reader) (ProposalProcedure, error) {
				p, err := DecodeProposalProcedure(rr)
				if err != nil {
					return ProposalProcedure{}, err
				}
				return *p, nil
			})
			if err != nil {
				return nil, err
			}
			b.proposalProcedures = pp
		case fieldCurrentTreasuryValue:
			v, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			b.currentTreasuryValue = &v
		case fieldDonation:
			v, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			b.donation = &v
		default:
			return nil, txerr.New(txerr.KindDecoding, "unknown transaction body field %d", key)
		}
		count++
	}
	if n == -1 {
		if err := r.ReadEndMap(); err != nil {
			return nil, err
		}
	}
	if !haveInputs || !haveOutputs || !haveFee {
		return nil, txerr.New(txerr.KindDecoding, "transaction body missing a mandatory field (inputs/outputs/fee)")
	}

	for _, o := range b.outputs {
		o.cache.SetParent(b)
	}
	if b.collateralReturn != nil {
		b.collateralReturn.cache.SetParent(b)
	}

	consumed := start.BytesRemaining() - r.BytesRemaining()
	b.cache.SetOriginalBytes(start.GetRemainder()[:consumed])
	return b, nil
}

// decodeInputSet accepts both the tag-258-wrapped and the bare array
// form of a set (§4.4, §9).
func decodeInputSet(r *cbor.Reader) ([]TxInput, error) {
	tag, isTag, err := r.PeekTag()
	if err != nil {
		return nil, err
	}
	if isTag && tag == cbor.TagSet {
		if _, err := r.ReadTag(); err != nil {
			return nil, err
		}
	}
	return decodeArrayOf(r, DecodeTxInput)
}

func decodeWithdrawalsMap(r *cbor.Reader) (map[string]uint64, error) {
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint64)
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
		acct, err := r.ReadBytestring()
		if err != nil {
			return nil, err
		}
		amt, err := r.ReadUnsigned()
		if err != nil {
			return nil, err
		}
		out[string(acct)] = amt
		count++
	}
	if n == -1 {
		if err := r.ReadEndMap(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
