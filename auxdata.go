package txcore

import (
	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
)

// TagAlonzoAuxData is the tag wrapping the modern Alonzo+ auxiliary-data
// map form (metadata_map, native_scripts, plutus_v1/2/3 keyed 0..4).
const TagAlonzoAuxData cbor.Tag = 259

// Metadatum is a Plutus-data-shaped value used for transaction metadata;
// it reuses the PlutusData tree since the CBOR shape is identical minus
// the constructor-tag ladder, which metadata never uses.
type Metadatum = PlutusData

// AuxiliaryData holds metadata plus attached scripts (§3.7). Multiple
// on-chain layouts exist; the decoder distinguishes by leading byte and
// the encoder preserves the witnessed form via C5.
type AuxiliaryData struct {
	Metadata      map[uint64]Metadatum
	NativeScripts []Script
	PlutusV1      []Script
	PlutusV2      []Script
	PlutusV3      []Script

	// form records which on-wire layout was witnessed on decode, so a
	// cache-cleared re-encode still picks a sensible default shape.
	form auxDataForm
	cache OriginCache
}

type auxDataForm int

const (
	auxDataFormAlonzo auxDataForm = iota
	auxDataFormShelleyMA
	auxDataFormShelleyBare
)

func (a *AuxiliaryData) InvalidateCache() { a.cache.InvalidateCache() }

func (a *AuxiliaryData) EncodeCBOR(w *cbor.Writer) {
	if cached, ok := a.cache.OriginalBytes(); ok {
		w.WriteEncodedValue(cached)
		return
	}
	switch a.form {
	case auxDataFormShelleyBare:
		a.encodeMetadataMap(w)
	case auxDataFormShelleyMA:
		w.WriteStartArray(2)
		a.encodeMetadataMap(w)
		a.encodeScriptList(w, a.NativeScripts)
	default:
		a.encodeAlonzo(w)
	}
}

func (a *AuxiliaryData) encodeMetadataMap(w *cbor.Writer) {
	keys := sortedUint64Keys(a.Metadata)
	w.WriteStartMap(len(keys))
	for _, k := range keys {
		w.WriteUnsigned(k)
		d := a.Metadata[k]
		d.EncodeCBOR(w)
	}
}

func (a *AuxiliaryData) encodeScriptList(w *cbor.Writer, scripts []Script) {
	w.WriteStartArray(len(scripts))
	for _, s := range scripts {
		w.WriteBytestring(s.Raw)
	}
}

func (a *AuxiliaryData) encodeAlonzo(w *cbor.Writer) {
	w.WriteTag(TagAlonzoAuxData)
	fields := map[int][]byte{}
	if len(a.Metadata) > 0 {
		fw := cbor.NewWriter()
		a.encodeMetadataMap(fw)
		fields[0] = fw.GetBytes()
	}
	if len(a.NativeScripts) > 0 {
		fw := cbor.NewWriter()
		a.encodeScriptList(fw, a.NativeScripts)
		fields[1] = fw.GetBytes()
	}
	if len(a.PlutusV1) > 0 {
		fw := cbor.NewWriter()
		a.encodeScriptList(fw, a.PlutusV1)
		fields[2] = fw.GetBytes()
	}
	if len(a.PlutusV2) > 0 {
		fw := cbor.NewWriter()
		a.encodeScriptList(fw, a.PlutusV2)
		fields[3] = fw.GetBytes()
	}
	if len(a.PlutusV3) > 0 {
		fw := cbor.NewWriter()
		a.encodeScriptList(fw, a.PlutusV3)
		fields[4] = fw.GetBytes()
	}
	writeAscendingKeyMap(w, fields)
}

func sortedUint64Keys(m map[uint64]Metadatum) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// DecodeAuxiliaryData accepts the bare-metadata-map form (pre-Mary),
// the [metadata, native_scripts] array form (Shelley-MA), and the
// tag-259 keyed-map form (Alonzo+).
func DecodeAuxiliaryData(r *cbor.Reader) (*AuxiliaryData, error) {
	start := r.Clone()
	ad := &AuxiliaryData{}

	tag, isTag, err := r.PeekTag()
	if err != nil {
		return nil, err
	}
	if isTag && tag == TagAlonzoAuxData {
		if _, err := r.ReadTag(); err != nil {
			return nil, err
		}
		if err := decodeAuxDataAlonzoFields(r, ad); err != nil {
			return nil, err
		}
		ad.form = auxDataFormAlonzo
	} else {
		state, err := r.PeekState()
		if err != nil {
			return nil, err
		}
		switch state {
		case cbor.StateStartArray, cbor.StateStartIndefiniteArray:
			if err := decodeAuxDataShelleyMA(r, ad); err != nil {
				return nil, err
			}
			ad.form = auxDataFormShelleyMA
		case cbor.StateStartMap, cbor.StateStartIndefiniteMap:
			md, err := decodeMetadataMap(r)
			if err != nil {
				return nil, err
			}
			ad.Metadata = md
			ad.form = auxDataFormShelleyBare
		default:
			return nil, txerr.New(txerr.KindUnexpectedCborType, "unexpected cbor item %s for auxiliary data", state)
		}
	}

	consumed := start.BytesRemaining() - r.BytesRemaining()
	ad.cache.SetOriginalBytes(start.GetRemainder()[:consumed])
	return ad, nil
}

func decodeMetadataMap(r *cbor.Reader) (map[uint64]Metadatum, error) {
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	md := make(map[uint64]Metadatum)
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
		val, err := DecodePlutusData(r)
		if err != nil {
			return nil, err
		}
		md[key] = *val
		count++
	}
	if n == -1 {
		if err := r.ReadEndMap(); err != nil {
			return nil, err
		}
	}
	return md, nil
}

func decodeAuxDataShelleyMA(r *cbor.Reader, ad *AuxiliaryData) error {
	n, err := r.ReadStartArray()
	if err != nil {
		return err
	}
	if n != -1 && n != 2 {
		return txerr.New(txerr.KindInvalidCborArraySize, "shelley-ma auxiliary data must have 2 elements, got %d", n)
	}
	md, err := decodeMetadataMap(r)
	if err != nil {
		return err
	}
	ad.Metadata = md
	scripts, err := decodeRawByteArray(r)
	if err != nil {
		return err
	}
	ad.NativeScripts = rawBytesToScripts(scripts)
	if n == -1 {
		return r.ReadEndArray()
	}
	return nil
}

func decodeAuxDataAlonzoFields(r *cbor.Reader, ad *AuxiliaryData) error {
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
		key, err := r.ReadUnsigned()
		if err != nil {
			return err
		}
		switch key {
		case 0:
			md, err := decodeMetadataMap(r)
			if err != nil {
				return err
			}
			ad.Metadata = md
		case 1:
			s, err := decodeRawByteArray(r)
			if err != nil {
				return err
			}
			ad.NativeScripts = rawBytesToScripts(s)
		case 2:
			s, err := decodeRawByteArray(r)
			if err != nil {
				return err
			}
			ad.PlutusV1 = rawBytesToScripts(s)
		case 3:
			s, err := decodeRawByteArray(r)
			if err != nil {
				return err
			}
			ad.PlutusV2 = rawBytesToScripts(s)
		case 4:
			s, err := decodeRawByteArray(r)
			if err != nil {
				return err
			}
			ad.PlutusV3 = rawBytesToScripts(s)
		default:
			if err := r.SkipValue(); err != nil {
				return err
			}
		}
		count++
	}
	if n == -1 {
		return r.ReadEndMap()
	}
	return nil
}
