package mask

import "testing"

func TestMarkAndIsSet(t *testing.T) {
	var m Mask
	m.Mark(3)
	m.Mark(40)

	if !m.IsSet(3) || !m.IsSet(40) {
		t.Fatalf("expected bits 3 and 40 to be set")
	}
	if m.IsSet(4) {
		t.Fatalf("bit 4 should not be set")
	}
	if len(m.words) < 2 {
		t.Fatalf("expected mask to widen to at least 2 words, got %d", len(m.words))
	}
}

func TestUnmarkBeyondWidthIsNoop(t *testing.T) {
	var m Mask
	m.Mark(1)
	m.Unmark(500)
	if !m.IsSet(1) {
		t.Fatalf("unrelated bit should be unaffected")
	}
}

func TestZeroExtendedEquality(t *testing.T) {
	var narrow, wide Mask
	narrow.Mark(1)

	wide.Mark(1)
	wide.Mark(200)
	wide.Unmark(200)

	if !narrow.Equal(wide) {
		t.Fatalf("masks with same set bits but different widths should compare equal")
	}
	if narrow.Key() != wide.Key() {
		t.Fatalf("keys should match after trimming trailing zero words")
	}
}

func TestContainsAllAnyNone(t *testing.T) {
	var required, excluded, sig Mask
	required.Mark(0)
	required.Mark(2)
	excluded.Mark(5)
	sig.Mark(0)
	sig.Mark(1)
	sig.Mark(2)

	if !sig.ContainsAll(required) {
		t.Fatalf("signature should contain all required bits")
	}
	if !sig.ContainsNone(excluded) {
		t.Fatalf("signature should contain none of the excluded bits")
	}

	var overlap Mask
	overlap.Mark(1)
	overlap.Mark(5)
	if !sig.ContainsAny(overlap) {
		t.Fatalf("signature shares bit 1 with overlap")
	}
}

func TestBitsRoundTrip(t *testing.T) {
	var m Mask
	for _, b := range []uint32{0, 31, 32, 63, 64} {
		m.Mark(b)
	}
	got := m.Bits()
	want := []uint32{0, 31, 32, 63, 64}
	if len(got) != len(want) {
		t.Fatalf("Bits() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Bits() = %v, want %v", got, want)
		}
	}
}

func TestMask256Locks(t *testing.T) {
	var locks Mask256
	if !locks.IsEmpty() {
		t.Fatalf("fresh Mask256 should be empty")
	}
	locks.Mark(1)
	locks.Mark(200)
	if locks.IsEmpty() {
		t.Fatalf("expected locks held")
	}
	locks.Unmark(1)
	if locks.IsEmpty() {
		t.Fatalf("bit 200 still held")
	}
	locks.Unmark(200)
	if !locks.IsEmpty() {
		t.Fatalf("all locks released")
	}
}
