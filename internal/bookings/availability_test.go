package bookings

import (
	"context"
	"testing"
	"time"
)

type stubSlotStore struct {
	taken  map[string]bool // "date time" keys
	booked map[string][]string
}

func (s *stubSlotStore) SlotTaken(_ context.Context, _ int64, date, timeOfDay string, _ int64) (bool, error) {
	return s.taken[date+" "+timeOfDay], nil
}

func (s *stubSlotStore) BookedSlots(context.Context, int64, string, string) (map[string][]string, error) {
	return s.booked, nil
}

type stubPlanner struct {
	grids map[string][]string
}

func (p *stubPlanner) SlotGrid(_ context.Context, _ int64, date string) ([]string, error) {
	return p.grids[date], nil
}

func TestSlotFree(t *testing.T) {
	store := &stubSlotStore{taken: map[string]bool{"2026-04-20 10:00": true}}
	a := NewAvailability(store, nil)

	free, err := a.SlotFree(context.Background(), 2, "2026-04-20", "10:00 AM", 0)
	if err != nil {
		t.Fatalf("slot free failed: %v", err)
	}
	if free {
		t.Fatal("expected occupied slot")
	}

	free, err = a.SlotFree(context.Background(), 2, "2026-04-20", "11:00", 0)
	if err != nil {
		t.Fatalf("slot free failed: %v", err)
	}
	if !free {
		t.Fatal("expected free slot")
	}
}

func TestAvailableSlotsForDate(t *testing.T) {
	store := &stubSlotStore{
		booked: map[string][]string{"2026-04-20": {"10:00", "14:00"}},
	}
	planner := &stubPlanner{
		grids: map[string][]string{"2026-04-20": {"09:00", "10:00", "11:00", "14:00", "15:00"}},
	}
	a := NewAvailability(store, planner)

	slots, err := a.AvailableSlotsForDate(context.Background(), 3, 2, "2026-04-20")
	if err != nil {
		t.Fatalf("available slots failed: %v", err)
	}
	want := []string{"09:00", "11:00", "15:00"}
	if len(slots) != len(want) {
		t.Fatalf("got %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("got %v, want %v", slots, want)
		}
	}
}

func TestAvailableDatesForMonth(t *testing.T) {
	// Clinic only opens on two days of the month; one is fully booked.
	planner := &stubPlanner{grids: map[string][]string{
		"2026-04-06": {"09:00", "10:00"},
		"2026-04-07": {"09:00"},
	}}
	store := &stubSlotStore{
		booked: map[string][]string{"2026-04-07": {"09:00"}},
	}
	a := NewAvailability(store, planner)

	dates, err := a.AvailableDatesForMonth(context.Background(), 3, 2, 2026, time.April)
	if err != nil {
		t.Fatalf("available dates failed: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2026-04-06" {
		t.Fatalf("got %v, want [2026-04-06]", dates)
	}
}

func TestAvailabilityWithoutPlanner(t *testing.T) {
	a := NewAvailability(&stubSlotStore{}, nil)
	if _, err := a.AvailableSlotsForDate(context.Background(), 3, 2, "2026-04-20"); err == nil {
		t.Fatal("expected error without planner")
	}
}
