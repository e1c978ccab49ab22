package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type DurationUnit string

const (
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
)

const (
	DefaultWeeklyCap = 40
	MaxWeeklyCap     = 168
)

var ErrInvalidSettings = errors.New("invalid settings")

type Settings struct {
	WeeklyCap    int          `json:"weeklyCap"`
	DurationUnit DurationUnit `json:"durationUnit"`
}

func DefaultSettings() Settings {
	return Settings{WeeklyCap: DefaultWeeklyCap, DurationUnit: UnitMinutes}
}

func (s Settings) Validate() error {
	if s.WeeklyCap <= 0 || s.WeeklyCap > MaxWeeklyCap {
		return fmt.Errorf("%w: weekly cap must be between 1 and %d hours", ErrInvalidSettings, MaxWeeklyCap)
	}
	if s.DurationUnit != UnitMinutes && s.DurationUnit != UnitHours {
		return fmt.Errorf("%w: duration unit must be %q or %q", ErrInvalidSettings, UnitMinutes, UnitHours)
	}
	return nil
}

// LoadSettings returns DefaultSettings until something has been saved.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	var out Settings
	var unit string
	err := s.db.QueryRowContext(ctx, `SELECT weekly_cap, duration_unit FROM settings WHERE id = 1;`).Scan(&out.WeeklyCap, &unit)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("load settings: %w: %w", ErrUnavailable, err)
	}
	out.DurationUnit = DurationUnit(unit)
	if out.Validate() != nil {
		return DefaultSettings(), nil
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (id, weekly_cap, duration_unit) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET weekly_cap = excluded.weekly_cap, duration_unit = excluded.duration_unit;`,
		settings.WeeklyCap, string(settings.DurationUnit))
	if err != nil {
		return fmt.Errorf("save settings: %w: %w", ErrUnavailable, err)
	}
	return nil
}
