package txcore

import "testing"

func mkPolicy(b byte) PolicyId {
	var p PolicyId
	p[0] = b
	return p
}

func mkAssetName(t *testing.T, s string) AssetName {
	t.Helper()
	n, err := NewAssetName([]byte(s))
	if err != nil {
		t.Fatalf("NewAssetName: %v", err)
	}
	return n
}

// TestMultiAssetAddSubRoundTrip is invariant #5: (a + b) - b == a, and the
// result never carries a zero-quantity entry.
func TestMultiAssetAddSubRoundTrip(t *testing.T) {
	tokenA := mkAssetName(t, "tokenA")
	tokenB := mkAssetName(t, "tokenB")

	a := NewMultiAsset()
	namesA := NewAssetNameMap()
	namesA.Set(tokenA, 10)
	namesA.Set(tokenB, 3)
	a.Set(mkPolicy(1), namesA)

	b := NewMultiAsset()
	namesB := NewAssetNameMap()
	namesB.Set(tokenA, 4)
	namesB.Set(tokenB, 3)
	b.Set(mkPolicy(1), namesB)
	namesB2 := NewAssetNameMap()
	namesB2.Set(tokenA, 7)
	b.Set(mkPolicy(2), namesB2)

	sum := a.Add(b)
	back := sum.Sub(b)

	if back.Len() != a.Len() {
		t.Fatalf("Sub(Add(a,b),b) has %d policies, want %d", back.Len(), a.Len())
	}
	for _, p := range a.Policies() {
		wantNames, _ := a.Get(p)
		gotNames, ok := back.Get(p)
		if !ok {
			t.Fatalf("policy %x missing from round-tripped result", p)
		}
		for _, n := range wantNames.Names() {
			wantQty, _ := wantNames.Get(n)
			gotQty, ok := gotNames.Get(n)
			if !ok || gotQty != wantQty {
				t.Errorf("asset %q = %d (ok=%v), want %d", n.Bytes(), gotQty, ok, wantQty)
			}
		}
	}

	// sum's policy-2/tokenA entry (0+7=7) then subtracting 7 again must
	// prune the entry entirely, not leave a zero-quantity residue.
	if _, ok := back.Get(mkPolicy(2)); ok {
		t.Errorf("policy present in a-only result after subtracting its only contribution")
	}
}

// TestAssetNameMapSetZeroPrunes checks that explicitly setting a quantity
// to zero removes the entry rather than keeping a zero-valued one.
func TestAssetNameMapSetZeroPrunes(t *testing.T) {
	m := NewAssetNameMap()
	name := mkAssetName(t, "token")
	m.Set(name, 5)
	m.Set(name, 0)
	if m.Len() != 0 {
		t.Fatalf("Len() = %d after zeroing sole entry, want 0", m.Len())
	}
	if _, ok := m.Get(name); ok {
		t.Errorf("Get found an entry after it was zeroed out")
	}
}

// TestMultiAssetCombinePrunesZeroResultPolicies checks that a policy whose
// every asset nets to zero after Add/Sub disappears from the result.
func TestMultiAssetCombinePrunesZeroResultPolicies(t *testing.T) {
	name := mkAssetName(t, "token")

	a := NewMultiAsset()
	namesA := NewAssetNameMap()
	namesA.Set(name, 5)
	a.Set(mkPolicy(9), namesA)

	b := NewMultiAsset()
	namesB := NewAssetNameMap()
	namesB.Set(name, 5)
	b.Set(mkPolicy(9), namesB)

	diff := a.Sub(b)
	if diff.Len() != 0 {
		t.Fatalf("Sub() left %d policies after exact cancellation, want 0", diff.Len())
	}
	if _, ok := diff.Get(mkPolicy(9)); ok {
		t.Errorf("canceled policy still present in result")
	}
}
