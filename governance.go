package txcore

import (
	"github.com/heliotx/cardano-txcore/bech32"
	"github.com/heliotx/cardano-txcore/cbor"
	"github.com/heliotx/cardano-txcore/txerr"
)

// GovernanceActionIdHRP is the bech32 human-readable prefix CIP-0129
// assigns to governance action ids (§6.2).
const GovernanceActionIdHRP = "gov_action"

// GovernanceActionId identifies a specific governance action by the
// transaction that proposed it and its index within that transaction's
// proposal procedures (§3.5).
type GovernanceActionId struct {
	TxHash Hash32
	Index  uint64
}

func (id GovernanceActionId) EncodeCBOR(w *cbor.Writer) {
	w.WriteStartArray(2)
	w.WriteBytestring(id.TxHash[:])
	w.WriteUnsigned(id.Index)
}

func DecodeGovernanceActionId(r *cbor.Reader) (GovernanceActionId, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return GovernanceActionId{}, err
	}
	if n != -1 && n != 2 {
		return GovernanceActionId{}, txerr.New(txerr.KindInvalidCborArraySize, "governance action id must have 2 elements, got %d", n)
	}
	hb, err := r.ReadBytestring()
	if err != nil {
		return GovernanceActionId{}, err
	}
	if len(hb) != 32 {
		return GovernanceActionId{}, txerr.New(txerr.KindInvalidBlake2bHashSize, "governance action tx hash must be 32 bytes")
	}
	idx, err := r.ReadUnsigned()
	if err != nil {
		return GovernanceActionId{}, err
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return GovernanceActionId{}, err
		}
	}
	var h Hash32
	copy(h[:], hb)
	return GovernanceActionId{TxHash: h, Index: idx}, nil
}

// Bech32 renders the CIP-0129 form: prefix "gov_action", payload =
// 32-byte hash concatenated with the index as a single byte. The
// canonical encoding only covers index <= 255 (§3.5, §6.2).
func (id GovernanceActionId) Bech32() (string, error) {
	if id.Index > 255 {
		return "", txerr.New(txerr.KindInvalidArgument, "governance action index %d exceeds the canonical bech32 form's single byte", id.Index)
	}
	payload := make([]byte, 0, 33)
	payload = append(payload, id.TxHash[:]...)
	payload = append(payload, byte(id.Index))
	return bech32.Encode(GovernanceActionIdHRP, payload, bech32.Bech32)
}

// GovernanceActionIdFromBech32 parses the CIP-0129 bech32 form,
// rejecting any payload whose length isn't exactly 33 bytes (§6.2).
func GovernanceActionIdFromBech32(s string) (GovernanceActionId, error) {
	hrp, payload, err := bech32.Decode(s, bech32.Bech32)
	if err != nil {
		return GovernanceActionId{}, err
	}
	if hrp != GovernanceActionIdHRP {
		return GovernanceActionId{}, txerr.New(txerr.KindDecoding, "unexpected bech32 prefix %q, want %q", hrp, GovernanceActionIdHRP)
	}
	if len(payload) != 33 {
		return GovernanceActionId{}, txerr.New(txerr.KindDecoding, "governance action id payload must be 33 bytes, got %d", len(payload))
	}
	var h Hash32
	copy(h[:], payload[:32])
	return GovernanceActionId{TxHash: h, Index: uint64(payload[32])}, nil
}

// VoterKind distinguishes the three bodies entitled to vote on
// governance actions (§3.5).
type VoterKind int

const (
	VoterCommitteeHotKeyHash VoterKind = iota
	VoterCommitteeHotScriptHash
	VoterDRepKeyHash
	VoterDRepScriptHash
	VoterStakingPoolKeyHash
)

// VoterKey tags a voter by type and credential hash (§3.5).
type VoterKey struct {
	Kind VoterKind
	Hash Hash28
}

func (v VoterKey) EncodeCBOR(w *cbor.Writer) {
	w.WriteStartArray(2)
	w.WriteUnsigned(uint64(v.Kind))
	w.WriteBytestring(v.Hash[:])
}

func DecodeVoterKey(r *cbor.Reader) (VoterKey, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return VoterKey{}, err
	}
	if n != -1 && n != 2 {
		return VoterKey{}, txerr.New(txerr.KindInvalidCborArraySize, "voter key must have 2 elements, got %d", n)
	}
	kind, err := r.ReadUnsigned()
	if err != nil {
		return VoterKey{}, err
	}
	hb, err := r.ReadBytestring()
	if err != nil {
		return VoterKey{}, err
	}
	if len(hb) != 28 {
		return VoterKey{}, txerr.New(txerr.KindInvalidBlake2bHashSize, "voter credential hash must be 28 bytes")
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return VoterKey{}, err
		}
	}
	var h Hash28
	copy(h[:], hb)
	return VoterKey{Kind: VoterKind(kind), Hash: h}, nil
}

// Vote is the ballot cast in a VotingProcedure (§3.5).
type Vote int

const (
	VoteNo Vote = iota
	VoteYes
	VoteAbstain
)

// Anchor is an off-chain metadata pointer (URL + content hash), used by
// both proposal and voting procedures for rationale documents.
type Anchor struct {
	URL      string
	DataHash Hash32
}

func (a Anchor) EncodeCBOR(w *cbor.Writer) {
	w.WriteStartArray(2)
	w.WriteTextstring(a.URL)
	w.WriteBytestring(a.DataHash[:])
}

func DecodeAnchor(r *cbor.Reader) (*Anchor, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	if n != -1 && n != 2 {
		return nil, txerr.New(txerr.KindInvalidCborArraySize, "anchor must have 2 elements, got %d", n)
	}
	url, err := r.ReadTextstring()
	if err != nil {
		return nil, err
	}
	hb, err := r.ReadBytestring()
	if err != nil {
		return nil, err
	}
	if len(hb) != 32 {
		return nil, txerr.New(txerr.KindInvalidBlake2bHashSize, "anchor data hash must be 32 bytes")
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	var h Hash32
	copy(h[:], hb)
	return &Anchor{URL: url, DataHash: h}, nil
}

// VotingProcedure is a single vote, with an optional rationale anchor (§3.5).
type VotingProcedure struct {
	Vote   Vote
	Anchor *Anchor
}

func (p VotingProcedure) EncodeCBOR(w *cbor.Writer) {
	w.WriteStartArray(2)
	w.WriteUnsigned(uint64(p.Vote))
	if p.Anchor == nil {
		w.WriteNull()
		return
	}
	p.Anchor.EncodeCBOR(w)
}

func DecodeVotingProcedure(r *cbor.Reader) (*VotingProcedure, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	if n != -1 && n != 2 {
		return nil, txerr.New(txerr.KindInvalidCborArraySize, "voting procedure must have 2 elements, got %d", n)
	}
	vote, err := r.ReadUnsigned()
	if err != nil {
		return nil, err
	}
	state, err := r.PeekState()
	if err != nil {
		return nil, err
	}
	var anchor *Anchor
	if state == cbor.StateNull {
		if err := r.ReadNull(); err != nil {
			return nil, err
		}
	} else {
		anchor, err = DecodeAnchor(r)
		if err != nil {
			return nil, err
		}
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return &VotingProcedure{Vote: Vote(vote), Anchor: anchor}, nil
}

// VotingProcedures maps Voter -> GovernanceActionId -> VotingProcedure (§3.5).
type VotingProcedures struct {
	order map[VoterKey][]GovernanceActionId
	order2 []VoterKey
	votes map[VoterKey]map[GovernanceActionId]*VotingProcedure
}

func NewVotingProcedures() *VotingProcedures {
	return &VotingProcedures{
		order: make(map[VoterKey][]GovernanceActionId),
		votes: make(map[VoterKey]map[GovernanceActionId]*VotingProcedure),
	}
}

func (vp *VotingProcedures) Set(voter VoterKey, action GovernanceActionId, proc VotingProcedure) {
	if _, ok := vp.votes[voter]; !ok {
		vp.votes[voter] = make(map[GovernanceActionId]*VotingProcedure)
		vp.order2 = append(vp.order2, voter)
	}
	if _, ok := vp.votes[voter][action]; !ok {
		vp.order[voter] = append(vp.order[voter], action)
	}
	vp.votes[voter][action] = &proc
}

func (vp *VotingProcedures) Get(voter VoterKey, action GovernanceActionId) (*VotingProcedure, bool) {
	m, ok := vp.votes[voter]
	if !ok {
		return nil, false
	}
	p, ok := m[action]
	return p, ok
}

func (vp *VotingProcedures) Voters() []VoterKey {
	out := make([]VoterKey, len(vp.order2))
	copy(out, vp.order2)
	return out
}

func (vp *VotingProcedures) Actions(voter VoterKey) []GovernanceActionId {
	out := make([]GovernanceActionId, len(vp.order[voter]))
	copy(out, vp.order[voter])
	return out
}

func (vp *VotingProcedures) EncodeCBOR(w *cbor.Writer) {
	voters := vp.Voters()
	w.WriteStartMap(len(voters))
	for _, voter := range voters {
		voter.EncodeCBOR(w)
		actions := vp.Actions(voter)
		w.WriteStartMap(len(actions))
		for _, action := range actions {
			action.EncodeCBOR(w)
			p, _ := vp.Get(voter, action)
			p.EncodeCBOR(w)
		}
	}
}

func DecodeVotingProcedures(r *cbor.Reader) (*VotingProcedures, error) {
	vp := NewVotingProcedures()
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
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
		voter, err := DecodeVoterKey(r)
		if err != nil {
			return nil, err
		}
		inner, err := r.ReadStartMap()
		if err != nil {
			return nil, err
		}
		innerCount := 0
		for {
			if inner == -1 {
				s, err := r.PeekState()
				if err != nil {
					return nil, err
				}
				if s == cbor.StateEndMap {
					break
				}
			} else if int64(innerCount) >= inner {
				break
			}
			action, err := DecodeGovernanceActionId(r)
			if err != nil {
				return nil, err
			}
			proc, err := DecodeVotingProcedure(r)
			if err != nil {
				return nil, err
			}
			vp.Set(voter, action, *proc)
			innerCount++
		}
		if inner == -1 {
			if err := r.ReadEndMap(); err != nil {
				return nil, err
			}
		}
		count++
	}
	if n == -1 {
		if err := r.ReadEndMap(); err != nil {
			return nil, err
		}
	}
	return vp, nil
}

// ProposalProcedure is a single governance proposal (§3.5).
type ProposalProcedure struct {
	Deposit       uint64
	RewardAccount []byte
	Action        PlutusData
	Anchor        Anchor
}

func (p ProposalProcedure) EncodeCBOR(w *cbor.Writer) {
	w.WriteStartArray(4)
	w.WriteUnsigned(p.Deposit)
	w.WriteBytestring(p.RewardAccount)
	p.Action.EncodeCBOR(w)
	p.Anchor.EncodeCBOR(w)
}

func DecodeProposalProcedure(r *cbor.Reader) (*ProposalProcedure, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	if n != -1 && n != 4 {
		return nil, txerr.New(txerr.KindInvalidCborArraySize, "proposal procedure must have 4 elements, got %d", n)
	}
	deposit, err := r.ReadUnsigned()
	if err != nil {
		return nil, err
	}
	reward, err := r.ReadBytestring()
	if err != nil {
		return nil, err
	}
	action, err := DecodePlutusData(r)
	if err != nil {
		return nil, err
	}
	anchor, err := DecodeAnchor(r)
	if err != nil {
		return nil, err
	}
	if n == -1 {
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	}
	return &ProposalProcedure{Deposit: deposit, RewardAccount: reward, Action: *action, Anchor: *anchor}, nil
}

// CertificateKind enumerates the certificate sum type (§3.5).
type CertificateKind int

const (
	CertStakeRegistration CertificateKind = iota
	CertStakeDeregistration
	CertStakeDelegation
	CertPoolRegistration
	CertPoolRetirement
	CertVoteDelegation
	CertStakeVoteDelegation
	CertMIR
	CertDRepRegistration
	CertDRepUpdate
	CertDRepDeregistration
	CertCommitteeHotKeyAuth
	CertCommitteeColdResign
)

// Certificate is a tagged sum over the certificate kinds the ledger
// supports (§3.5). The on-wire shape is `[kind, ...fields]`; this core
// treats the kind-specific field payload as opaque pre-encoded CBOR,
// since the fields differ per kind and none of them feed the fee engine
// or the hash-preservation invariants beyond round-tripping verbatim.
type Certificate struct {
	Kind   CertificateKind
	Fields []byte // pre-encoded CBOR of the whole certificate array, kind included
}

func (c Certificate) EncodeCBOR(w *cbor.Writer) {
	w.WriteEncodedValue(c.Fields)
}

// DecodeCertificate captures the whole certificate (kind tag plus
// fields) verbatim; the kind is extracted for callers that branch on it.
func DecodeCertificate(r *cbor.Reader) (*Certificate, error) {
	start := r.Clone()
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, txerr.New(txerr.KindInvalidCborArraySize, "certificate array must not be empty")
	}
	kind, err := r.ReadUnsigned()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		for {
			s, err := r.PeekState()
			if err != nil {
				return nil, err
			}
			if s == cbor.StateEndArray {
				break
			}
			if err := r.SkipValue(); err != nil {
				return nil, err
			}
		}
		if err := r.ReadEndArray(); err != nil {
			return nil, err
		}
	} else {
		for i := int64(1); i < n; i++ {
			if err := r.SkipValue(); err != nil {
				return nil, err
			}
		}
	}
	consumed := start.BytesRemaining() - r.BytesRemaining()
	return &Certificate{Kind: CertificateKind(kind), Fields: start.GetRemainder()[:consumed]}, nil
}
