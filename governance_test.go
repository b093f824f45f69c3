package txcore

import "testing"

// TestGovernanceActionIdBech32RoundTrip is E3: a governance action id with
// a zero hash and index 17 renders to the CIP-0129 bech32 form and back.
func TestGovernanceActionIdBech32RoundTrip(t *testing.T) {
	const want = "gov_action1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqpzklpgpf"
	id := GovernanceActionId{Index: 17}

	got, err := id.Bech32()
	if err != nil {
		t.Fatalf("Bech32: %v", err)
	}
	if got != want {
		t.Errorf("Bech32() = %s, want %s", got, want)
	}

	back, err := GovernanceActionIdFromBech32(got)
	if err != nil {
		t.Fatalf("GovernanceActionIdFromBech32: %v", err)
	}
	if back != id {
		t.Errorf("round trip = %+v, want %+v", back, id)
	}
}

// TestGovernanceActionIdBech32RoundTripNonZeroHash checks round-tripping
// with a hash that is not all zero bytes, since E3 alone wouldn't catch a
// decoder that silently ignores the hash portion of the payload.
func TestGovernanceActionIdBech32RoundTripNonZeroHash(t *testing.T) {
	var hash Hash32
	for i := range hash {
		hash[i] = byte(i + 1)
	}
	id := GovernanceActionId{TxHash: hash, Index: 3}

	encoded, err := id.Bech32()
	if err != nil {
		t.Fatalf("Bech32: %v", err)
	}
	back, err := GovernanceActionIdFromBech32(encoded)
	if err != nil {
		t.Fatalf("GovernanceActionIdFromBech32: %v", err)
	}
	if back != id {
		t.Errorf("round trip = %+v, want %+v", back, id)
	}
}

// TestGovernanceActionIdBech32IndexTooLarge checks the canonical form's
// documented limitation: only index <= 255 fits the single-byte suffix.
func TestGovernanceActionIdBech32IndexTooLarge(t *testing.T) {
	id := GovernanceActionId{Index: 256}
	if _, err := id.Bech32(); err == nil {
		t.Fatal("expected an error for index exceeding one byte")
	}
}

// TestGovernanceActionIdFromBech32RejectsWrongPrefix checks that a payload
// encoded under a different HRP is rejected rather than silently accepted.
func TestGovernanceActionIdFromBech32RejectsWrongPrefix(t *testing.T) {
	if _, err := GovernanceActionIdFromBech32("pool1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq2xk6vu"); err == nil {
		t.Fatal("expected an error for a non gov_action prefix")
	}
}
