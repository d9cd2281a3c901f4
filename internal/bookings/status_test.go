package bookings

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be legal", c.from, c.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusConfirmed},
		{StatusCompleted, StatusCancelled},
		{StatusConfirmed, StatusPending},
	}
	for _, c := range denied {
		if CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be illegal", c.from, c.to)
		}
	}
}

func TestTerminal(t *testing.T) {
	if Terminal(StatusPending) || Terminal(StatusConfirmed) {
		t.Fatal("pending and confirmed are not terminal")
	}
	if !Terminal(StatusCancelled) || !Terminal(StatusCompleted) {
		t.Fatal("cancelled and completed are terminal")
	}
}

func TestStatusSeedsCoverRegistry(t *testing.T) {
	if len(StatusSeeds) != 4 {
		t.Fatalf("expected 4 seeds, got %d", len(StatusSeeds))
	}
	for _, seed := range StatusSeeds {
		if !KnownStatus(seed.Name) {
			t.Errorf("seed %q not a known status", seed.Name)
		}
	}
	if KnownStatus("rescheduled") {
		t.Fatal("unexpected status accepted")
	}
}
