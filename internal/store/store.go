package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mesworks/floortimer/internal/timer"
)

// Store is the persistence layer for the timer core. All operations are
// short, single-record transactions; no lock is held across a network round
// trip.
type Store struct {
	db *gorm.DB
}

// meta holds daemon bookkeeping such as the liveness heartbeat.
type meta struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

const heartbeatKey = "heartbeat"

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(
		&timer.Session{},
		&timer.Log{},
		&timer.RecoverySnapshot{},
		&timer.LimitWarning{},
		&meta{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Heartbeat stamps the daemon's liveness marker, used at startup to detect
// how long the daemon was down.
func (s *Store) Heartbeat(now time.Time) error {
	m := meta{Key: heartbeatKey, Value: now.UTC().Format(time.RFC3339Nano)}
	return s.db.Save(&m).Error
}

// LastHeartbeat returns the most recent heartbeat, or zero if none recorded.
func (s *Store) LastHeartbeat() (time.Time, error) {
	var m meta
	err := s.db.First(&m, "key = ?", heartbeatKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, m.Value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad heartbeat value %q", timer.ErrDataIntegrity, m.Value)
	}
	return t, nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", timer.ErrNotFound, what, id)
	}
	return err
}
