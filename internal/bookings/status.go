package bookings

// Status is a booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// StatusSeed describes one row of the booking_statuses reference table.
// The table is seeded once by migration, never mutated at runtime.
type StatusSeed struct {
	Name        Status
	Description string
}

// StatusSeeds is the fixed registry of lifecycle states.
var StatusSeeds = []StatusSeed{
	{StatusPending, "Awaiting therapist confirmation"},
	{StatusConfirmed, "Confirmed by the therapist"},
	{StatusCancelled, "Cancelled by patient or therapist"},
	{StatusCompleted, "Session took place"},
}

// transitions lists the legal next states per current state. Cancelled and
// completed are terminal; a cancelled booking may still be hard-deleted,
// which is not a status transition.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// KnownStatus reports whether s is one of the four registry states.
func KnownStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further status transition is permitted from s.
func Terminal(s Status) bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
