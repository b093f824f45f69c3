package fee

import (
	"encoding/hex"
	"math/big"
	"testing"

	txcore "github.com/heliotx/cardano-txcore"
	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/resolver"
)

func bigOne() *big.Int { return big.NewInt(1) }

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	bs, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad test hex %q: %v", s, err)
	}
	return bs
}

// TestMinAdaRequired is E4: a single output with a bare (asset-free) coin
// and ada_per_utxo_byte = 4310 must price to exactly 978370.
func TestMinAdaRequired(t *testing.T) {
	raw := mustHex(t, "825839009493315cd92eb5d8c4304e67b7e16ae36d61d34502694657811a2c8e32c728d3861e164cab28cb8f006448139c8f1740ffb8e7aa9e5232dc00")
	out, err := txcore.DecodeTxOutput(cbor.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeTxOutput: %v", err)
	}

	got, err := MinAdaRequired(out, 4310)
	if err != nil {
		t.Fatalf("MinAdaRequired: %v", err)
	}
	if got != 978370 {
		t.Errorf("MinAdaRequired = %d, want 978370", got)
	}
}

// TestMinAdaRequiredLowerBound checks that a multi-asset output (no
// placeholder-coin edge cases) still prices consistently with the
// (serialized_len+160)*ada_per_utxo_byte shape asserted by invariant #8.
func TestMinAdaRequiredLowerBound(t *testing.T) {
	raw := mustHex(t, "825839009493315cd92eb5d8c4304e67b7e16ae36d61d34502694657811a2c8e32c728d3861e164cab28cb8f006448139c8f1740ffb8e7aa9e5232dc8200a1581c8b8370c97ae17eb69a8c97f733888f7485b60fd820c69211c8bbeb56a14001")
	out, err := txcore.DecodeTxOutput(cbor.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeTxOutput: %v", err)
	}

	w := cbor.NewWriter()
	out.EncodeCBOR(w)
	lowerBound := uint64(w.GetSize()+160) * 4310

	got, err := MinAdaRequired(out, 4310)
	if err != nil {
		t.Fatalf("MinAdaRequired: %v", err)
	}
	if got < lowerBound {
		t.Errorf("MinAdaRequired = %d, want >= %d", got, lowerBound)
	}
}

// TestComputeTransactionFee is E5: fee-vector #1 from the corpus, with an
// empty resolver since it carries no reference inputs.
func TestComputeTransactionFee(t *testing.T) {
	raw := mustHex(t, "84a500818258200f3abbc8fc19c2e61bab6059bf8a466e6e754833a08a62a6c56fe0e78f19d9d5000181825839009493315cd92eb5d8c4304e67b7e16ae36d61d34502694657811a2c8e32c728d3861e164cab28cb8f006448139c8f1740ffb8e7aa9e5232dc820aa3581c2a286ad895d091f2b3d168a6091ad2627d30a72761a5bc36eef00740a14014581c659f2917fb63f12b33667463ee575eeac1845bbc736b9c0bbc40ba82a14454534c411832581c7eae28af2208be856f7a119668ae52a49b73725e326dc16579dcc373a240182846504154415445181e020a031903e8081864a200818258206199186adb51974690d7247d2646097d2c62763b767b528816fb7ed3f9f55d395840bdea87fca1b4b4df8a9b8fb4183c0fab2f8261eb6c5e4bc42c800bb9c8918755bdea87fca1b4b4df8a9b8fb4183c0fab2f8261eb6c5e4bc42c800bb9c89187550281845820deeb8f82f2af5836ebbc1b450b6dbf0b03c93afe5696f10d49e8a8304ebfac01584064676273786767746f6768646a7074657476746b636f6376796669647171676775726a687268716169697370717275656c6876797071786565777072796676775820b6dbf0b03c93afe5696f10d49e8a8304ebfac01deeb8f82f2af5836ebbc1b45041a0f5f6")
	tx, err := txcore.DecodeTransaction(cbor.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}

	priceMem, _ := txcore.NewUnitInterval(577, 10000)
	priceStep, _ := txcore.NewUnitInterval(721, 10000000)
	refScriptPrice, _ := txcore.NewUnitIntervalFromFloat(15.0)
	params := &ProtocolParameters{
		MinFeeA:              44,
		MinFeeB:              155381,
		PriceMem:             priceMem,
		PriceStep:            priceStep,
		RefScriptCostPerByte: refScriptPrice,
		AdaPerUtxoByte:       4310,
	}

	got, err := ComputeTransactionFee(tx, resolver.NewMemory(nil), params)
	if err != nil {
		t.Fatalf("ComputeTransactionFee: %v", err)
	}
	if got != 176193 {
		t.Errorf("ComputeTransactionFee = %d, want 176193", got)
	}
}

// TestMinFeeWithoutScriptsIsLinear checks the base-fee formula directly
// against the transaction's serialized length, independent of the
// redeemer/reference-script machinery.
func TestMinFeeWithoutScriptsIsLinear(t *testing.T) {
	raw := mustHex(t, "84a500818258200f3abbc8fc19c2e61bab6059bf8a466e6e754833a08a62a6c56fe0e78f19d9d5000181825839009493315cd92eb5d8c4304e67b7e16ae36d61d34502694657811a2c8e32c728d3861e164cab28cb8f006448139c8f1740ffb8e7aa9e5232dc820aa3581c2a286ad895d091f2b3d168a6091ad2627d30a72761a5bc36eef00740a14014581c659f2917fb63f12b33667463ee575eeac1845bbc736b9c0bbc40ba82a14454534c411832581c7eae28af2208be856f7a119668ae52a49b73725e326dc16579dcc373a240182846504154415445181e020a031903e8081864a200818258206199186adb51974690d7247d2646097d2c62763b767b528816fb7ed3f9f55d395840bdea87fca1b4b4df8a9b8fb4183c0fab2f8261eb6c5e4bc42c800bb9c8918755bdea87fca1b4b4df8a9b8fb4183c0fab2f8261eb6c5e4bc42c800bb9c89187550281845820deeb8f82f2af5836ebbc1b450b6dbf0b03c93afe5696f10d49e8a8304ebfac01584064676273786767746f6768646a7074657476746b636f6376796669647171676775726a687268716169697370717275656c6876797071786565777072796676775820b6dbf0b03c93afe5696f10d49e8a8304ebfac01deeb8f82f2af5836ebbc1b45041a0f5f6")
	tx, err := txcore.DecodeTransaction(cbor.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}

	want := uint64(len(raw))*44 + 155381
	got := MinFeeWithoutScripts(tx, 44, 155381)
	if got != want {
		t.Errorf("MinFeeWithoutScripts = %d, want %d", got, want)
	}
}

func TestScriptRefFeeMissingReferenceInput(t *testing.T) {
	body := txcore.NewTransactionBody(nil, nil, 0)
	body.SetReferenceInputs([]txcore.TxInput{{TxHash: txcore.Hash32{1}, Index: 0}})
	ratio, _ := txcore.NewUnitIntervalFromFloat(15.0)
	_, err := ScriptRefFee(body, resolver.NewMemory(nil), ratio)
	if err == nil {
		t.Fatal("expected error for unresolved reference input")
	}
}

func TestScriptRefFeeNoReferenceInputs(t *testing.T) {
	body := txcore.NewTransactionBody(nil, nil, 0)
	ratio, _ := txcore.NewUnitIntervalFromFloat(15.0)
	got, err := ScriptRefFee(body, resolver.NewMemory(nil), ratio)
	if err != nil {
		t.Fatalf("ScriptRefFee: %v", err)
	}
	if got != 0 {
		t.Errorf("ScriptRefFee = %d, want 0", got)
	}
}

func minimalTransaction(aux *txcore.AuxiliaryData) *txcore.Transaction {
	addr := txcore.NewAddress([]byte{0x61, 0x01, 0x02, 0x03})
	out := txcore.NewTxOutput(addr, txcore.Value{Coin: 1000000})
	body := txcore.NewTransactionBody(
		[]txcore.TxInput{{TxHash: txcore.Hash32{1}, Index: 0}},
		[]*txcore.TxOutput{out},
		200000,
	)
	tx := txcore.NewTransaction(body, txcore.NewTransactionWitnessSet())
	if aux != nil {
		tx.SetAuxiliaryData(aux)
	}
	return tx
}

// TestMinFeeWithoutScriptsIsMonotonicInAuxData is invariant #7: attaching
// a non-empty auxiliary-data entry strictly increases the base fee, since
// it strictly increases the transaction's serialized length.
func TestMinFeeWithoutScriptsIsMonotonicInAuxData(t *testing.T) {
	bare := minimalTransaction(nil)
	withAux := minimalTransaction(&txcore.AuxiliaryData{
		Metadata: map[uint64]txcore.Metadatum{
			0: txcore.NewPlutusInteger(bigOne()),
		},
	})

	feeBare := MinFeeWithoutScripts(bare, 44, 155381)
	feeWithAux := MinFeeWithoutScripts(withAux, 44, 155381)

	if feeWithAux <= feeBare {
		t.Errorf("MinFeeWithoutScripts with aux data = %d, want strictly greater than bare fee %d", feeWithAux, feeBare)
	}
}
