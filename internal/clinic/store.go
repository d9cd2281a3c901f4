// Package clinic provides clinic reference data: display name, business
// hours and slot duration. The data changes rarely and is read on every
// availability query, so it lives in redis as JSON documents.
package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DayHours represents the opening hours for a single day.
// Nil means the clinic is closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "09:00" in 24-hour format
	Close string `json:"close"` // "17:00" in 24-hour format
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// ForWeekday returns the hours for a weekday, nil when closed.
func (h *BusinessHours) ForWeekday(day time.Weekday) *DayHours {
	switch day {
	case time.Monday:
		return h.Monday
	case time.Tuesday:
		return h.Tuesday
	case time.Wednesday:
		return h.Wednesday
	case time.Thursday:
		return h.Thursday
	case time.Friday:
		return h.Friday
	case time.Saturday:
		return h.Saturday
	case time.Sunday:
		return h.Sunday
	}
	return nil
}

// Config is one clinic's reference data.
type Config struct {
	ClinicID    int64         `json:"clinic_id"`
	Name        string        `json:"name"`
	SlotMinutes int           `json:"slot_minutes"`
	Hours       BusinessHours `json:"hours"`
}

// DefaultConfig returns the fallback used when a clinic has no stored
// config: weekdays nine to five, hour-long slots.
func DefaultConfig(clinicID int64) *Config {
	weekday := &DayHours{Open: "09:00", Close: "17:00"}
	return &Config{
		ClinicID:    clinicID,
		Name:        fmt.Sprintf("Clinic %d", clinicID),
		SlotMinutes: 60,
		Hours: BusinessHours{
			Monday:    weekday,
			Tuesday:   weekday,
			Wednesday: weekday,
			Thursday:  weekday,
			Friday:    weekday,
		},
	}
}

// Store provides persistence for clinic configurations.
type Store struct {
	redis *redis.Client
}

// NewStore creates a clinic config store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(clinicID int64) string {
	return "clinic:config:" + strconv.FormatInt(clinicID, 10)
}

// Get retrieves clinic config, returning the default if not found.
func (s *Store) Get(ctx context.Context, clinicID int64) (*Config, error) {
	data, err := s.redis.Get(ctx, s.key(clinicID)).Bytes()
	if err == redis.Nil {
		return DefaultConfig(clinicID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal config: %w", err)
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 60
	}
	return &cfg, nil
}

// Set saves clinic config.
func (s *Store) Set(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("clinic: marshal config: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(cfg.ClinicID), data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: set config: %w", err)
	}
	return nil
}

// ClinicName returns the clinic's display name.
func (s *Store) ClinicName(ctx context.Context, clinicID int64) (string, error) {
	cfg, err := s.Get(ctx, clinicID)
	if err != nil {
		return "", err
	}
	return cfg.Name, nil
}

// SlotGrid returns the bookable start times for the clinic on a date,
// stepping through the day's business hours by the clinic's slot duration.
// A closed day yields an empty grid.
func (s *Store) SlotGrid(ctx context.Context, clinicID int64, date string) ([]string, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("clinic: bad date %q: %w", date, err)
	}
	cfg, err := s.Get(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	hours := cfg.Hours.ForWeekday(day.Weekday())
	if hours == nil {
		return nil, nil
	}
	open, err := time.Parse("15:04", hours.Open)
	if err != nil {
		return nil, fmt.Errorf("clinic: bad open time %q: %w", hours.Open, err)
	}
	close, err := time.Parse("15:04", hours.Close)
	if err != nil {
		return nil, fmt.Errorf("clinic: bad close time %q: %w", hours.Close, err)
	}

	step := time.Duration(cfg.SlotMinutes) * time.Minute
	var grid []string
	for t := open; t.Add(step).Before(close) || t.Add(step).Equal(close); t = t.Add(step) {
		grid = append(grid, t.Format("15:04"))
	}
	return grid, nil
}
