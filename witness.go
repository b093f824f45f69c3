package txcore

import (
	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
)

// VKeyWitness is a verification key plus its Ed25519 signature over the
// transaction body hash (§3.6).
type VKeyWitness struct {
	VKey      [32]byte
	Signature [64]byte
}

func (w VKeyWitness) EncodeCBOR(cw *cbor.Writer) {
	cw.WriteStartArray(2)
	cw.WriteBytestring(w.VKey[:])
	cw.WriteBytestring(w.Signature[:])
}

func DecodeVKeyWitness(r *cbor.Reader) (VKeyWitness, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return VKeyWitness{}, err
	}
	if n != -1 && n != 2 {
		return VKeyWitness{}, txerr.New(txerr.KindInvalidCborArraySize, "vkey witness must have 2 elements, got %d", n)
	}
	vkey, err := r.ReadBytestring()
	if err != nil {
		return VKeyWitness{}, err
	}
	sig, err := r.ReadBytestring()
	if err != nil {
		return VKeyWitness{}, err
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return VKeyWitness{}, err
		}
	}
	var out VKeyWitness
	copy(out.VKey[:], vkey)
	copy(out.Signature[:], sig)
	return out, nil
}

// ScriptKind distinguishes the native-script and the three Plutus
// language versions (§3.6).
type ScriptKind int

const (
	ScriptNative ScriptKind = iota
	ScriptPlutusV1
	ScriptPlutusV2
	ScriptPlutusV3
)

// Script holds the exact on-chain script bytes for whichever variant it is.
// Plutus variants never re-parse the script body; native scripts carry a
// parsed Plutus-data-like tree the ledger's native-script language defines,
// represented here as opaque CBOR for the scope of this core (§1: the
// script evaluator is an external collaborator).
type Script struct {
	Kind ScriptKind
	Raw  []byte
}

func (s Script) EncodeCBOR(w *cbor.Writer) {
	w.WriteEncodedValue(s.Raw)
}

func DecodeScript(r *cbor.Reader) (*Script, error) {
	bs, err := r.ReadEncodedValue()
	if err != nil {
		return nil, err
	}
	return &Script{Raw: bs}, nil
}

// RedeemerTag names the invocation site a redeemer applies to (§3.6).
type RedeemerTag int

const (
	RedeemerSpend RedeemerTag = iota
	RedeemerMint
	RedeemerCert
	RedeemerReward
	RedeemerVote
	RedeemerPropose
)

// ExUnits bounds a Plutus script invocation's runtime cost (GLOSSARY).
type ExUnits struct {
	Mem   uint64
	Steps uint64
}

// Redeemer pairs an invocation site with the Plutus data argument and
// its execution-unit budget (§3.6).
type Redeemer struct {
	Tag     RedeemerTag
	Index   uint64
	Data    PlutusData
	ExUnits ExUnits
}

type redeemerKey struct {
	tag   RedeemerTag
	index uint64
}

// RedeemerList is logically a map (tag, index) -> (data, exUnits). It
// accepts both the legacy array-of-quadruples form and the modern
// map-keyed form on decode, and re-emits whichever form it saw (§3.6).
type RedeemerList struct {
	order []redeemerKey
	items map[redeemerKey]*Redeemer

	legacyForm bool
	cache      OriginCache
}

func (rl *RedeemerList) InvalidateCache() { rl.cache.InvalidateCache() }

func NewRedeemerList() *RedeemerList {
	return &RedeemerList{items: make(map[redeemerKey]*Redeemer)}
}

// Add appends a redeemer, clearing the cache.
func (rl *RedeemerList) Add(r Redeemer) {
	k := redeemerKey{r.Tag, r.Index}
	if _, ok := rl.items[k]; !ok {
		rl.order = append(rl.order, k)
	}
	rl.items[k] = &r
	rl.InvalidateCache()
}

// SetExUnits updates an existing redeemer's budget, returning
// element-not-found if no such (tag, index) redeemer exists (§4.7).
func (rl *RedeemerList) SetExUnits(tag RedeemerTag, index uint64, mem, steps uint64) error {
	k := redeemerKey{tag, index}
	r, ok := rl.items[k]
	if !ok {
		return txerr.New(txerr.KindElementNotFound, "no redeemer for tag=%d index=%d", tag, index)
	}
	r.ExUnits = ExUnits{Mem: mem, Steps: steps}
	rl.InvalidateCache()
	return nil
}

func (rl *RedeemerList) Len() int { return len(rl.order) }

func (rl *RedeemerList) Items() []Redeemer {
	out := make([]Redeemer, len(rl.order))
	for i, k := range rl.order {
		out[i] = *rl.items[k]
	}
	return out
}

func (rl *RedeemerList) EncodeCBOR(w *cbor.Writer) {
	if cached, ok := rl.cache.OriginalBytes(); ok {
		w.WriteEncodedValue(cached)
		return
	}
	if rl.legacyForm {
		rl.encodeLegacy(w)
		return
	}
	rl.encodeModern(w)
}

func (rl *RedeemerList) encodeLegacy(w *cbor.Writer) {
	w.WriteStartArray(len(rl.order))
	for _, k := range rl.order {
		r := rl.items[k]
		w.WriteStartArray(4)
		w.WriteUnsigned(uint64(r.Tag))
		w.WriteUnsigned(r.Index)
		r.Data.EncodeCBOR(w)
		w.WriteStartArray(2)
		w.WriteUnsigned(r.ExUnits.Mem)
		w.WriteUnsigned(r.ExUnits.Steps)
	}
}

func (rl *RedeemerList) encodeModern(w *cbor.Writer) {
	w.WriteStartMap(len(rl.order))
	for _, k := range rl.order {
		r := rl.items[k]
		w.WriteStartArray(2)
		w.WriteUnsigned(uint64(r.Tag))
		w.WriteUnsigned(r.Index)
		w.WriteStartArray(2)
		r.Data.EncodeCBOR(w)
		w.WriteStartArray(2)
		w.WriteUnsigned(r.ExUnits.Mem)
		w.WriteUnsigned(r.ExUnits.Steps)
	}
}

func DecodeRedeemerList(r *cbor.Reader) (*RedeemerList, error) {
	start := r.Clone()
	state, err := r.PeekState()
	if err != nil {
		return nil, err
	}

	rl := NewRedeemerList()
	if state == cbor.StateStartArray || state == cbor.StateStartIndefiniteArray {
		rl.legacyForm = true
		if err := decodeRedeemerListLegacy(r, rl); err != nil {
			return nil, err
		}
	} else {
		if err := decodeRedeemerListModern(r, rl); err != nil {
			return nil, err
		}
	}
	consumed := start.BytesRemaining() - r.BytesRemaining()
	rl.cache.SetOriginalBytes(start.GetRemainder()[:consumed])
	return rl, nil
}

func decodeRedeemerListLegacy(r *cbor.Reader, rl *RedeemerList) error {
	n, err := r.ReadStartArray()
	if err != nil {
		return err
	}
	count := 0
	for {
		if n == -1 {
			s, err := r.PeekState()
			if err != nil {
				return err
			}
			if s == cbor.StateEndArray {
				break
			}
		} else if int64(count) >= n {
			break
		}
		if err := decodeRedeemerQuadruple(r, rl); err != nil {
			return err
		}
		count++
	}
	if n == -1 {
		return r.ReadEndArray()
	}
	return nil
}

func decodeRedeemerQuadruple(r *cbor.Reader, rl *RedeemerList) error {
	n, err := r.ReadStartArray()
	if err != nil {
		return err
	}
	if n != -1 && n != 4 {
		return txerr.New(txerr.KindInvalidCborArraySize, "legacy redeemer must have 4 elements, got %d", n)
	}
	tag, err := r.ReadUnsigned()
	if err != nil {
		return err
	}
	index, err := r.ReadUnsigned()
	if err != nil {
		return err
	}
	data, err := DecodePlutusData(r)
	if err != nil {
		return err
	}
	ex, err := decodeExUnits(r)
	if err != nil {
		return err
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return err
		}
	}
	k := redeemerKey{RedeemerTag(tag), index}
	rl.order = append(rl.order, k)
	rl.items[k] = &Redeemer{Tag: RedeemerTag(tag), Index: index, Data: *data, ExUnits: ex}
	return nil
}

func decodeRedeemerListModern(r *cbor.Reader, rl *RedeemerList) error {
	n, err := r.ReadStartMap()
	if err != nil {
		return err
	}
	count := 0
	for {
		if n == -1 {
			s, err := r.PeekState()
			if err != nil {
				return err
			}
			if s == cbor.StateEndMap {
				break
			}
		} else if int64(count) >= n {
			break
		}
		kn, err := r.ReadStartArray()
		if err != nil {
			return err
		}
		if kn != -1 && kn != 2 {
			return txerr.New(txerr.KindInvalidCborArraySize, "redeemer key must have 2 elements, got %d", kn)
		}
		tag, err := r.ReadUnsigned()
		if err != nil {
			return err
		}
		index, err := r.ReadUnsigned()
		if err != nil {
			return err
		}
		if kn == -1 {
			if err := r.ReadEndArray(); err != nil {
				return err
			}
		}
		vn, err := r.ReadStartArray()
		if err != nil {
			return err
		}
		if vn != -1 && vn != 2 {
			return txerr.New(txerr.KindInvalidCborArraySize, "redeemer value must have 2 elements, got %d", vn)
		}
		data, err := DecodePlutusData(r)
		if err != nil {
			return err
		}
		ex, err := decodeExUnits(r)
		if err != nil {
			return err
		}
		if vn == -1 {
			if err := r.ReadEndArray(); err != nil {
				return err
			}
		}
		k := redeemerKey{RedeemerTag(tag), index}
		rl.order = append(rl.order, k)
		rl.items[k] = &Redeemer{Tag: RedeemerTag(tag), Index: index, Data: *data, ExUnits: ex}
		count++
	}
	if n == -1 {
		return r.ReadEndMap()
	}
	return nil
}

func decodeExUnits(r *cbor.Reader) (ExUnits, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return ExUnits{}, err
	}
	if n != -1 && n != 2 {
		return ExUnits{}, txerr.New(txerr.KindInvalidCborArraySize, "ex units must have 2 elements, got %d", n)
	}
	mem, err := r.ReadUnsigned()
	if err != nil {
		return ExUnits{}, err
	}
	steps, err := r.ReadUnsigned()
	if err != nil {
		return ExUnits{}, err
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return ExUnits{}, err
		}
	}
	return ExUnits{Mem: mem, Steps: steps}, nil
}

// TransactionWitnessSet collects every witness attached to a transaction,
// keyed by the fixed numeric field codes in §3.7.
//
// Fields are unexported: mutation goes through a Set/Add method, matching
// RedeemerList's own guarded items map.
type TransactionWitnessSet struct {
	vKeyWitnesses  []VKeyWitness
	nativeScripts  []Script
	bootstrapAttrs [][]byte
	plutusV1       []Script
	plutusData     []PlutusData
	redeemers      *RedeemerList
	plutusV2       []Script
	plutusV3       []Script

	cache OriginCache
}

// NewTransactionWitnessSet builds an empty witness set.
func NewTransactionWitnessSet() *TransactionWitnessSet {
	return &TransactionWitnessSet{}
}

func (ws *TransactionWitnessSet) InvalidateCache() { ws.cache.InvalidateCache() }

func (ws *TransactionWitnessSet) VKeyWitnesses() []VKeyWitness { return ws.vKeyWitnesses }
func (ws *TransactionWitnessSet) SetVKeyWitnesses(vs []VKeyWitness) {
	ws.vKeyWitnesses = vs
	ws.InvalidateCache()
}
func (ws *TransactionWitnessSet) AddVKeyWitness(v VKeyWitness) {
	ws.vKeyWitnesses = append(ws.vKeyWitnesses, v)
	ws.InvalidateCache()
}

func (ws *TransactionWitnessSet) NativeScripts() []Script { return ws.nativeScripts }
func (ws *TransactionWitnessSet) SetNativeScripts(s []Script) {
	ws.nativeScripts = s
	ws.InvalidateCache()
}

func (ws *TransactionWitnessSet) BootstrapAttrs() [][]byte { return ws.bootstrapAttrs }
func (ws *TransactionWitnessSet) SetBootstrapAttrs(b [][]byte) {
	ws.bootstrapAttrs = b
	ws.InvalidateCache()
}

func (ws *TransactionWitnessSet) PlutusV1() []Script { return ws.plutusV1 }
func (ws *TransactionWitnessSet) SetPlutusV1(s []Script) {
	ws.plutusV1 = s
	ws.InvalidateCache()
}

func (ws *TransactionWitnessSet) PlutusData() []PlutusData { return ws.plutusData }
func (ws *TransactionWitnessSet) SetPlutusData(d []PlutusData) {
	ws.plutusData = d
	ws.InvalidateCache()
}

// Redeemers returns the attached redeemer list, or nil if none was set.
func (ws *TransactionWitnessSet) Redeemers() *RedeemerList { return ws.redeemers }

// SetRedeemers attaches a redeemer list, wiring its cache to propagate
// invalidation up into this witness set (§4.5/§9's upward propagation).
func (ws *TransactionWitnessSet) SetRedeemers(rl *RedeemerList) {
	if rl != nil {
		rl.cache.SetParent(ws)
	}
	ws.redeemers = rl
	ws.InvalidateCache()
}

func (ws *TransactionWitnessSet) PlutusV2() []Script { return ws.plutusV2 }
func (ws *TransactionWitnessSet) SetPlutusV2(s []Script) {
	ws.plutusV2 = s
	ws.InvalidateCache()
}

func (ws *TransactionWitnessSet) PlutusV3() []Script { return ws.plutusV3 }
func (ws *TransactionWitnessSet) SetPlutusV3(s []Script) {
	ws.plutusV3 = s
	ws.InvalidateCache()
}

func (ws *TransactionWitnessSet) EncodeCBOR(w *cbor.Writer) {
	if cached, ok := ws.cache.OriginalBytes(); ok {
		w.WriteEncodedValue(cached)
		return
	}
	fields := map[int][]byte{}
	if len(ws.vKeyWitnesses) > 0 {
		fw := cbor.NewWriter()
		fw.WriteStartArray(len(ws.vKeyWitnesses))
		for _, vw := range ws.vKeyWitnesses {
			vw.EncodeCBOR(fw)
		}
		fields[0] = fw.GetBytes()
	}
	if len(ws.nativeScripts) > 0 {
		fields[1] = encodeScriptArray(ws.nativeScripts)
	}
	if len(ws.bootstrapAttrs) > 0 {
		fw := cbor.NewWriter()
		fw.WriteStartArray(len(ws.bootstrapAttrs))
		for _, b := range ws.bootstrapAttrs {
			fw.WriteEncodedValue(b)
		}
		fields[2] = fw.GetBytes()
	}
	if len(ws.plutusV1) > 0 {
		fields[3] = encodeScriptArray(ws.plutusV1)
	}
	if len(ws.plutusData) > 0 {
		fw := cbor.NewWriter()
		fw.WriteStartArray(len(ws.plutusData))
		for i := range ws.plutusData {
			ws.plutusData[i].EncodeCBOR(fw)
		}
		fields[4] = fw.GetBytes()
	}
	if ws.redeemers != nil && ws.redeemers.Len() > 0 {
		fw := cbor.NewWriter()
		ws.redeemers.EncodeCBOR(fw)
		fields[5] = fw.GetBytes()
	}
	if len(ws.plutusV2) > 0 {
		fields[6] = encodeScriptArray(ws.plutusV2)
	}
	if len(ws.plutusV3) > 0 {
		fields[7] = encodeScriptArray(ws.plutusV3)
	}
	writeAscendingKeyMap(w, fields)
}

func encodeScriptArray(scripts []Script) []byte {
	fw := cbor.NewWriter()
	fw.WriteStartArray(len(scripts))
	for _, s := range scripts {
		fw.WriteBytestring(s.Raw)
	}
	return fw.GetBytes()
}

func DecodeTransactionWitnessSet(r *cbor.Reader) (*TransactionWitnessSet, error) {
	start := r.Clone()
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	ws := &TransactionWitnessSet{}
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
		if err := decodeWitnessField(r, ws, key); err != nil {
			return nil, err
		}
		count++
	}
	if n == -1 {
		if err := r.ReadEndMap(); err != nil {
			return nil, err
		}
	}
	if ws.redeemers != nil {
		ws.redeemers.cache.SetParent(ws)
	}
	consumed := start.BytesRemaining() - r.BytesRemaining()
	ws.cache.SetOriginalBytes(start.GetRemainder()[:consumed])
	return ws, nil
}

func decodeWitnessField(r *cbor.Reader, ws *TransactionWitnessSet, key uint64) error {
	switch key {
	case 0:
		vws, err := decodeArrayOf(r, DecodeVKeyWitness)
		if err != nil {
			return err
		}
		ws.vKeyWitnesses = vws
	case 1:
		scripts, err := decodeRawByteArray(r)
		if err != nil {
			return err
		}
		ws.nativeScripts = rawBytesToScripts(scripts)
	case 2:
		bs, err := decodeEncodedArray(r)
		if err != nil {
			return err
		}
		ws.bootstrapAttrs = bs
	case 3:
		scripts, err := decodeRawByteArray(r)
		if err != nil {
			return err
		}
		ws.plutusV1 = rawBytesToScripts(scripts)
	case 4:
		n, err := r.ReadStartArray()
		if err != nil {
			return err
		}
		count := 0
		for {
			if n == -1 {
				s, err := r.PeekState()
				if err != nil {
					return err
				}
				if s == cbor.StateEndArray {
					break
				}
			} else if int64(count) >= n {
				break
			}
			d, err := DecodePlutusData(r)
			if err != nil {
				return err
			}
			ws.plutusData = append(ws.plutusData, *d)
			count++
		}
		if n == -1 {
			if err := r.ReadEndArray(); err != nil {
				return err
			}
		}
	case 5:
		rl, err := DecodeRedeemerList(r)
		if err != nil {
			return err
		}
		ws.redeemers = rl
	case 6:
		scripts, err := decodeRawByteArray(r)
		if err != nil {
			return err
		}
		ws.plutusV2 = rawBytesToScripts(scripts)
	case 7:
		scripts, err := decodeRawByteArray(r)
		if err != nil {
			return err
		}
		ws.plutusV3 = rawBytesToScripts(scripts)
	default:
		return r.SkipValue()
	}
	return nil
}

func rawBytesToScripts(raw [][]byte) []Script {
	out := make([]Script, len(raw))
	for i, b := range raw {
		out[i] = Script{Raw: b}
	}
	return out
}

func decodeRawByteArray(r *cbor.Reader) ([][]byte, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	var out [][]byte
	count := 0
	for {
		if n == -1 {
			s, err := r.PeekState()
			if err != nil {
				return nil, err
			}
			if s == cbor.StateEndArray {
				break
			}
		} else if int64(count) >= n {
			break
		}
		b, err := r.ReadBytestring()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		count++
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeEncodedArray(r *cbor.Reader) ([][]byte, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	var out [][]byte
	count := 0
	for {
		if n == -1 {
			s, err := r.PeekState()
			if err != nil {
				return nil, err
			}
			if s == cbor.StateEndArray {
				break
			}
		} else if int64(count) >= n {
			break
		}
		b, err := r.ReadEncodedValue()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		count++
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeArrayOf[T any](r *cbor.Reader, decodeOne func(*cbor.Reader) (T, error)) ([]T, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	var out []T
	count := 0
	for {
		if n == -1 {
			s, err := r.PeekState()
			if err != nil {
				return nil, err
			}
			if s == cbor.StateEndArray {
				break
			}
		} else if int64(count) >= n {
			break
		}
		v, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		count++
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
