package diff

import "testing"

func TestCycleTrackerRevisitSamePairSuppressed(t *testing.T) {
	c := newCycleTracker()
	a, b := new(int), new(int)

	revisit, mismatch := c.enter(a, b)
	if revisit || mismatch {
		t.Fatalf("first entry must be neither a revisit nor a mismatch, got revisit=%v mismatch=%v", revisit, mismatch)
	}

	revisit, mismatch = c.enter(a, b)
	if !revisit || mismatch {
		t.Fatalf("re-entering the exact same pair must be a revisit, not a mismatch, got revisit=%v mismatch=%v", revisit, mismatch)
	}
}

func TestCycleTrackerMismatchDetectedOnLeftRepairing(t *testing.T) {
	c := newCycleTracker()
	a, b, other := new(int), new(int), new(int)

	if revisit, mismatch := c.enter(a, b); revisit || mismatch {
		t.Fatalf("first entry must be clean, got revisit=%v mismatch=%v", revisit, mismatch)
	}

	// a was already paired with b; pairing it with a different right node
	// is the structural mismatch cycle.go's own contract describes.
	revisit, mismatch := c.enter(a, other)
	if revisit {
		t.Fatal("a distinct pairing must not be reported as a revisit")
	}
	if !mismatch {
		t.Fatal("re-pairing an already-visited left with a different right must be a mismatch")
	}
}

func TestCycleTrackerMismatchDetectedOnRightRepairing(t *testing.T) {
	c := newCycleTracker()
	a, b, other := new(int), new(int), new(int)

	if revisit, mismatch := c.enter(a, b); revisit || mismatch {
		t.Fatalf("first entry must be clean, got revisit=%v mismatch=%v", revisit, mismatch)
	}

	revisit, mismatch := c.enter(other, b)
	if revisit {
		t.Fatal("a distinct pairing must not be reported as a revisit")
	}
	if !mismatch {
		t.Fatal("re-pairing an already-visited right with a different left must be a mismatch")
	}
}
