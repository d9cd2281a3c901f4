package bookings

import (
	"context"
	"fmt"
	"time"
)

// SlotStore is the slice of the repository the availability checker reads.
type SlotStore interface {
	SlotTaken(ctx context.Context, physioID int64, date, timeOfDay string, excludeID int64) (bool, error)
	BookedSlots(ctx context.Context, physioID int64, fromDate, toDate string) (map[string][]string, error)
}

// SlotPlanner yields the candidate slot grid for a clinic on a given date,
// derived from the clinic's business hours and slot duration.
type SlotPlanner interface {
	SlotGrid(ctx context.Context, clinicID int64, date string) ([]string, error)
}

// Availability answers slot-occupancy questions using the same
// "non-cancelled booking occupies a slot" rule the lifecycle service
// enforces at write time.
type Availability struct {
	store   SlotStore
	planner SlotPlanner
}

// NewAvailability constructs the availability checker.
func NewAvailability(store SlotStore, planner SlotPlanner) *Availability {
	if store == nil {
		panic("bookings: slot store required")
	}
	return &Availability{store: store, planner: planner}
}

// SlotFree reports whether a therapist slot has no conflicting non-cancelled
// booking. excludeID lets a reschedule ignore the booking being moved.
func (a *Availability) SlotFree(ctx context.Context, physioID int64, date, timeOfDay string, excludeID int64) (bool, error) {
	taken, err := a.store.SlotTaken(ctx, physioID, date, NormalizeTime(timeOfDay), excludeID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// AvailableSlotsForDate lists the clinic's slot grid for the date minus the
// therapist's occupied slots.
func (a *Availability) AvailableSlotsForDate(ctx context.Context, clinicID, physioID int64, date string) ([]string, error) {
	if a.planner == nil {
		return nil, fmt.Errorf("bookings: no slot planner configured")
	}
	grid, err := a.planner.SlotGrid(ctx, clinicID, date)
	if err != nil {
		return nil, fmt.Errorf("bookings: slot grid: %w", err)
	}
	booked, err := a.store.BookedSlots(ctx, physioID, date, date)
	if err != nil {
		return nil, err
	}
	return subtract(grid, booked[date]), nil
}

// AvailableDatesForMonth lists the dates in the month on which the therapist
// has at least one free slot at the clinic.
func (a *Availability) AvailableDatesForMonth(ctx context.Context, clinicID, physioID int64, year int, month time.Month) ([]string, error) {
	if a.planner == nil {
		return nil, fmt.Errorf("bookings: no slot planner configured")
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	booked, err := a.store.BookedSlots(ctx, physioID, first.Format("2006-01-02"), last.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	var dates []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		grid, err := a.planner.SlotGrid(ctx, clinicID, date)
		if err != nil {
			return nil, fmt.Errorf("bookings: slot grid for %s: %w", date, err)
		}
		if len(subtract(grid, booked[date])) > 0 {
			dates = append(dates, date)
		}
	}
	return dates, nil
}

func subtract(grid, occupied []string) []string {
	if len(grid) == 0 {
		return nil
	}
	taken := make(map[string]struct{}, len(occupied))
	for _, t := range occupied {
		taken[NormalizeTime(t)] = struct{}{}
	}
	var free []string
	for _, t := range grid {
		if _, ok := taken[NormalizeTime(t)]; !ok {
			free = append(free, t)
		}
	}
	return free
}
