package txcore

import (
	"bytes"

	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
)

// AssetName is an arbitrary byte sequence of at most 32 bytes (§3.2).
type AssetName struct {
	bytes []byte
}

// NewAssetName validates and wraps a raw asset name.
func NewAssetName(b []byte) (AssetName, error) {
	if len(b) > 32 {
		return AssetName{}, txerr.New(txerr.KindInvalidArgument, "asset name longer than 32 bytes")
	}
	return AssetName{bytes: append([]byte(nil), b...)}, nil
}

func (a AssetName) Bytes() []byte { return a.bytes }
func (a AssetName) key() string   { return string(a.bytes) }

// PolicyId is a minting-policy script hash.
type PolicyId = Hash28

// AssetId identifies a single asset uniquely as a (PolicyId, AssetName) pair.
type AssetId struct {
	Policy PolicyId
	Name   AssetName
}

// assetQty pairs an AssetName with its signed quantity so AssetNameMap can
// keep the name alongside the value in its backing OrderedMap (whose key is
// the name's comparable byte string, not the AssetName itself).
type assetQty struct {
	name AssetName
	qty  int64
}

// AssetNameMap maps AssetName to a signed quantity, signed to allow
// mint/burn semantics (§3.2). Backed by an OrderedMap keyed on the asset
// name's byte representation.
type AssetNameMap struct {
	m *OrderedMap[string, assetQty]
}

// NewAssetNameMap constructs an empty map.
func NewAssetNameMap() *AssetNameMap {
	return &AssetNameMap{m: NewOrderedMap[string, assetQty]()}
}

// Set records a quantity for a name. A zero quantity removes the entry,
// matching the "never empty after arithmetic" pruning rule.
func (m *AssetNameMap) Set(name AssetName, quantity int64) {
	k := name.key()
	if quantity == 0 {
		m.m.Delete(k)
		return
	}
	m.m.Set(k, assetQty{name: name, qty: quantity})
}

func (m *AssetNameMap) Get(name AssetName) (int64, bool) {
	v, ok := m.m.Get(name.key())
	return v.qty, ok
}

func (m *AssetNameMap) Len() int { return m.m.Len() }

// Names returns names sorted by byte value, the canonical emit order.
func (m *AssetNameMap) Names() []AssetName {
	keys := m.m.SortedKeys(func(a, b string) bool { return a < b })
	out := make([]AssetName, len(keys))
	for i, k := range keys {
		v, _ := m.m.Get(k)
		out[i] = v.name
	}
	return out
}

// Add returns the pointwise sum of two maps, pruning zero results.
func (m *AssetNameMap) Add(other *AssetNameMap) *AssetNameMap {
	return m.combine(other, func(a, b int64) int64 { return a + b })
}

// Sub returns the pointwise difference, pruning zero results.
func (m *AssetNameMap) Sub(other *AssetNameMap) *AssetNameMap {
	return m.combine(other, func(a, b int64) int64 { return a - b })
}

func (m *AssetNameMap) combine(other *AssetNameMap, op func(a, b int64) int64) *AssetNameMap {
	out := NewAssetNameMap()
	seen := make(map[string]bool)
	for _, k := range m.m.Keys() {
		seen[k] = true
		mv, _ := m.m.Get(k)
		ov, _ := other.m.Get(k)
		out.Set(mv.name, op(mv.qty, ov.qty))
	}
	for _, k := range other.m.Keys() {
		if seen[k] {
			continue
		}
		ov, _ := other.m.Get(k)
		out.Set(ov.name, op(0, ov.qty))
	}
	return out
}

// GetPositive returns only the entries with strictly positive quantity.
func (m *AssetNameMap) GetPositive() *AssetNameMap {
	out := NewAssetNameMap()
	for _, k := range m.m.Keys() {
		v, _ := m.m.Get(k)
		if v.qty > 0 {
			out.Set(v.name, v.qty)
		}
	}
	return out
}

// GetNegative returns only the entries with strictly negative quantity.
func (m *AssetNameMap) GetNegative() *AssetNameMap {
	out := NewAssetNameMap()
	for _, k := range m.m.Keys() {
		v, _ := m.m.Get(k)
		if v.qty < 0 {
			out.Set(v.name, v.qty)
		}
	}
	return out
}

// MultiAsset maps PolicyId to AssetNameMap (§3.2), backed by an OrderedMap
// so decode order is preserved but encode order follows Policies' sort.
type MultiAsset struct {
	m *OrderedMap[PolicyId, *AssetNameMap]
}

func NewMultiAsset() *MultiAsset {
	return &MultiAsset{m: NewOrderedMap[PolicyId, *AssetNameMap]()}
}

func (ma *MultiAsset) Set(policy PolicyId, names *AssetNameMap) {
	if names == nil || names.Len() == 0 {
		ma.m.Delete(policy)
		return
	}
	ma.m.Set(policy, names)
}

func (ma *MultiAsset) Get(policy PolicyId) (*AssetNameMap, bool) {
	return ma.m.Get(policy)
}

// Policies returns policy ids sorted by byte value, the canonical emit order.
func (ma *MultiAsset) Policies() []PolicyId {
	return ma.m.SortedKeys(func(a, b PolicyId) bool { return bytes.Compare(a[:], b[:]) < 0 })
}

func (ma *MultiAsset) Len() int { return ma.m.Len() }

// Add returns the pointwise sum across all policies, pruning any policy
// left with an empty asset map.
func (ma *MultiAsset) Add(other *MultiAsset) *MultiAsset {
	return ma.combine(other, (*AssetNameMap).Add)
}

// Sub returns the pointwise difference across all policies.
func (ma *MultiAsset) Sub(other *MultiAsset) *MultiAsset {
	return ma.combine(other, (*AssetNameMap).Sub)
}

func (ma *MultiAsset) combine(other *MultiAsset, op func(a, b *AssetNameMap) *AssetNameMap) *MultiAsset {
	out := NewMultiAsset()
	seen := make(map[PolicyId]bool)
	empty := NewAssetNameMap()
	for _, p := range ma.m.Keys() {
		seen[p] = true
		o, ok := other.m.Get(p)
		if !ok {
			o = empty
		}
		mv, _ := ma.m.Get(p)
		out.Set(p, op(mv, o))
	}
	for _, p := range other.m.Keys() {
		if seen[p] {
			continue
		}
		ov, _ := other.m.Get(p)
		out.Set(p, op(empty, ov))
	}
	return out
}

// Value is a lovelace coin amount plus an optional multi-asset bundle (§3.2).
type Value struct {
	Coin   uint64
	Assets *MultiAsset
}

// EncodeCBOR writes the value: a bare coin integer if there are no
// assets, otherwise the tuple [coin, multi-asset-map], mirroring the
// original EncodeValue's branch on asset presence.
func (v Value) EncodeCBOR(w *cbor.Writer) {
	if v.Assets == nil || v.Assets.Len() == 0 {
		w.WriteUnsigned(v.Coin)
		return
	}
	w.WriteStartArray(2)
	w.WriteUnsigned(v.Coin)
	encodeMultiAsset(w, v.Assets)
}

// encodeCBORWithCoinBytes writes the value using coinBytes verbatim in
// place of a freshly encoded coin integer, otherwise following the same
// bare/tuple branch as EncodeCBOR. The fee engine's minimum-ada sizing
// uses this to substitute a placeholder coin without touching Assets (§4.6).
func (v Value) encodeCBORWithCoinBytes(w *cbor.Writer, coinBytes []byte) {
	if v.Assets == nil || v.Assets.Len() == 0 {
		w.WriteEncodedValue(coinBytes)
		return
	}
	w.WriteStartArray(2)
	w.WriteEncodedValue(coinBytes)
	encodeMultiAsset(w, v.Assets)
}

func encodeMultiAsset(w *cbor.Writer, ma *MultiAsset) {
	policies := ma.Policies()
	w.WriteStartMap(len(policies))
	for _, p := range policies {
		w.WriteBytestring(p[:])
		names, _ := ma.Get(p)
		nameList := names.Names()
		w.WriteStartMap(len(nameList))
		for _, n := range nameList {
			w.WriteBytestring(n.Bytes())
			q, _ := names.Get(n)
			w.WriteSigned(q)
		}
	}
}

// DecodeValue reads either a bare coin integer or the [coin, assets] tuple form.
func DecodeValue(r *cbor.Reader) (Value, error) {
	state, err := r.PeekState()
	if err != nil {
		return Value{}, err
	}
	if state == cbor.StateUnsignedInteger {
		coin, err := r.ReadUnsigned()
		if err != nil {
			return Value{}, err
		}
		return Value{Coin: coin}, nil
	}

	n, err := r.ReadStartArray()
	if err != nil {
		return Value{}, err
	}
	if n != -1 && n != 2 {
		return Value{}, txerr.New(txerr.KindInvalidCborArraySize, "expected 2-element value tuple, got %d", n)
	}
	coin, err := r.ReadUnsigned()
	if err != nil {
		return Value{}, err
	}
	ma, err := decodeMultiAsset(r)
	if err != nil {
		return Value{}, err
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return Value{}, err
		}
	}
	return Value{Coin: coin, Assets: ma}, nil
}

func decodeMultiAsset(r *cbor.Reader) (*MultiAsset, error) {
	ma := NewMultiAsset()
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	count := 0
	for {
		if n == -1 {
			state, err := r.PeekState()
			if err != nil {
				return nil, err
			}
			if state == cbor.StateEndMap {
				break
			}
		} else if int64(count) >= n {
			break
		}
		policyBytes, err := r.ReadBytestring()
		if err != nil {
			return nil, err
		}
		if len(policyBytes) != 28 {
			return nil, txerr.New(txerr.KindInvalidBlake2bHashSize, "policy id must be 28 bytes")
		}
		var policy PolicyId
		copy(policy[:], policyBytes)

		names := NewAssetNameMap()
		inner, err := r.ReadStartMap()
		if err != nil {
			return nil, err
		}
		innerCount := 0
		for {
			if inner == -1 {
				state, err := r.PeekState()
				if err != nil {
					return nil, err
				}
				if state == cbor.StateEndMap {
					break
				}
			} else if int64(innerCount) >= inner {
				break
			}
			nameBytes, err := r.ReadBytestring()
			if err != nil {
				return nil, err
			}
			name, err := NewAssetName(nameBytes)
			if err != nil {
				return nil, err
			}
			qty, err := r.ReadSigned()
			if err != nil {
				return nil, err
			}
			names.Set(name, qty)
			innerCount++
		}
		if inner == -1 {
			if err := r.ReadEndMap(); err != nil {
				return nil, err
			}
		}
		ma.Set(policy, names)
		count++
	}
	if n == -1 {
		if err := r.ReadEndMap(); err != nil {
			return nil, err
		}
	}
	return ma, nil
}
