// Package fee implements the deterministic transaction-fee arithmetic
// (§4.6): minimum per-output ada, reference-script byte pricing,
// per-script execution cost, and the total transaction fee formula.
package fee

import (
	"math/big"

	txcore "github.com/heliotx/cardano-txcore"
	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
	"github.com/jinzhu/copier"
)

// minAdaFixedOverhead is the empirical ledger-side storage-bookkeeping
// constant added to an output's serialized length before scaling by
// ada_per_utxo_byte. If the ledger changes it, this must move in lockstep.
const minAdaFixedOverhead = 160

// ProtocolParameters bundles the subset of ledger protocol parameters the
// fee engine consumes. Callers own the bundle; the engine treats it as
// read-only for the duration of any call.
type ProtocolParameters struct {
	MinFeeA              uint64
	MinFeeB              uint64
	PriceMem             *txcore.UnitInterval
	PriceStep            *txcore.UnitInterval
	RefScriptCostPerByte *txcore.UnitInterval
	AdaPerUtxoByte       uint64
}

// Clone returns a deep copy, so a caller can hand the engine a bundle it
// is free to mutate afterwards without affecting a prior fee computation.
func (p *ProtocolParameters) Clone() *ProtocolParameters {
	var out ProtocolParameters
	copier.CopyWithOption(&out, p, copier.Option{DeepCopy: true})
	return &out
}

// UTXOResolver answers reference-input lookups for the fee engine (§6.3).
// A reference input that fails to resolve is a hard failure, not a
// zero-value substitution: the engine cannot see the attached scripts it
// needs to price without it.
type UTXOResolver interface {
	Resolve(in txcore.TxInput) (*txcore.UTXO, bool)
}

// MinAdaRequired computes the minimum coin value an output's value field
// must carry to be storable on-chain (§4.6): fill the coin with the fixed
// 7-byte placeholder of TxOutput.EncodeCBORWithMaxCoin, serialize, and
// scale the resulting length.
func MinAdaRequired(output *txcore.TxOutput, adaPerUtxoByte uint64) (uint64, error) {
	w := cbor.NewWriter()
	output.EncodeCBORWithMaxCoin(w)
	return (uint64(w.GetSize()) + minAdaFixedOverhead) * adaPerUtxoByte, nil
}

// ScriptRefFee sums the on-chain byte size of every Plutus script attached
// to a resolved reference input and scales it by ratio, rounding down
// (§4.6). Tiered post-Conway pricing is out of scope; this is the base
// formula the corpus test vectors were built against.
func ScriptRefFee(body *txcore.TransactionBody, resolver UTXOResolver, ratio *txcore.UnitInterval) (uint64, error) {
	var totalBytes uint64
	for _, ref := range body.ReferenceInputs() {
		utxo, ok := resolver.Resolve(ref)
		if !ok {
			return 0, txerr.New(txerr.KindRequiredUtxoMissing, "reference input %s#%d could not be resolved", ref.TxHash.Hex(), ref.Index)
		}
		if ref := utxo.Output.ScriptRef(); ref != nil {
			totalBytes += uint64(len(ref.Raw))
		}
	}
	if totalBytes == 0 {
		return 0, nil
	}
	cost := new(big.Rat).Mul(new(big.Rat).SetInt(new(big.Int).SetUint64(totalBytes)), ratio.Rat())
	return ratFloor(cost), nil
}

// MinScriptFee sums every redeemer's execution-unit budget into a
// lovelace cost: the memory and step costs are added as exact rationals
// and the sum is rounded up to the next lovelace once, then the
// reference-script fee is added (§4.6).
func MinScriptFee(tx *txcore.Transaction, params *ProtocolParameters, resolver UTXOResolver) (uint64, error) {
	var totalMem, totalSteps uint64
	if ws := tx.WitnessSet(); ws != nil && ws.Redeemers() != nil {
		for _, r := range ws.Redeemers().Items() {
			totalMem += r.ExUnits.Mem
			totalSteps += r.ExUnits.Steps
		}
	}

	memCost := new(big.Rat).Mul(new(big.Rat).SetInt(new(big.Int).SetUint64(totalMem)), params.PriceMem.Rat())
	stepCost := new(big.Rat).Mul(new(big.Rat).SetInt(new(big.Int).SetUint64(totalSteps)), params.PriceStep.Rat())
	execFee := ratCeil(new(big.Rat).Add(memCost, stepCost))

	refFee, err := ScriptRefFee(tx.Body(), resolver, params.RefScriptCostPerByte)
	if err != nil {
		return 0, err
	}
	return execFee + refFee, nil
}

// MinFeeWithoutScripts is the linear base fee over the full transaction's
// serialized length (§4.6).
func MinFeeWithoutScripts(tx *txcore.Transaction, minFeeA, minFeeB uint64) uint64 {
	return uint64(len(tx.ToCBOR()))*minFeeA + minFeeB
}

// ComputeTransactionFee returns min_fee_without_scripts + min_script_fee,
// the full deterministic transaction fee (§4.6).
func ComputeTransactionFee(tx *txcore.Transaction, resolver UTXOResolver, params *ProtocolParameters) (uint64, error) {
	params = params.Clone()
	scriptFee, err := MinScriptFee(tx, params, resolver)
	if err != nil {
		return 0, err
	}
	base := MinFeeWithoutScripts(tx, params.MinFeeA, params.MinFeeB)
	return base + scriptFee, nil
}

// ratFloor rounds a non-negative rational down to the nearest integer.
func ratFloor(r *big.Rat) uint64 {
	q := new(big.Int).Div(r.Num(), r.Denom())
	return q.Uint64()
}

// ratCeil rounds a non-negative rational up to the nearest integer.
func ratCeil(r *big.Rat) uint64 {
	q, rem := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if rem.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Uint64()
}
