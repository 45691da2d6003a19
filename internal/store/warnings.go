package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mesworks/floortimer/internal/timer"
)

// WarningForDay returns the worker's limit warning for a UTC day, or nil.
// At most one exists per worker per day.
func (s *Store) WarningForDay(userID, day string) (*timer.LimitWarning, error) {
	var w timer.LimitWarning
	err := s.db.Where("user_id = ? AND day = ?", userID, day).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) CreateWarning(w *timer.LimitWarning) error {
	return s.db.Create(w).Error
}

func (s *Store) SaveWarning(w *timer.LimitWarning) error {
	return s.db.Save(w).Error
}

// ExpiredUnresolvedWarnings returns warnings whose countdown deadline has
// passed without a resolution. These drive the forced-stop failsafe.
func (s *Store) ExpiredUnresolvedWarnings(now time.Time) ([]timer.LimitWarning, error) {
	var warnings []timer.LimitWarning
	err := s.db.
		Where("resolution = ? AND deadline <= ?", "", now).
		Find(&warnings).Error
	return warnings, err
}
