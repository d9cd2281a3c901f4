package bookings

import (
	"strings"
	"testing"
)

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference()
	if !strings.HasPrefix(ref, "PB") {
		t.Fatalf("expected PB prefix, got %q", ref)
	}
	if len(ref) > referenceMaxLen {
		t.Fatalf("reference %q exceeds %d chars", ref, referenceMaxLen)
	}
	if ref != strings.ToUpper(ref) {
		t.Fatalf("expected uppercase reference, got %q", ref)
	}
}

func TestGenerateReferenceVaries(t *testing.T) {
	// Not unique by construction, but two back-to-back draws colliding
	// would mean the random component is broken.
	if GenerateReference() == GenerateReference() {
		t.Fatal("consecutive references identical")
	}
}
