package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mesworks/floortimer/internal/timer"
)

// CreateSessionExclusive inserts a new session, enforcing the single active
// timer invariant inside one transaction: the check and the insert commit
// together, so two concurrent starts for the same worker cannot both succeed.
func (s *Store) CreateSessionExclusive(sess *timer.Session) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&timer.Session{}).
			Where("user_id = ? AND state <> ?", sess.UserID, timer.StateStopped).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: user %s already has an active timer", timer.ErrConflict, sess.UserID)
		}
		return tx.Create(sess).Error
	})
}

func (s *Store) GetSession(id string) (*timer.Session, error) {
	var sess timer.Session
	if err := s.db.First(&sess, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &sess, nil
}

// ActiveSession returns the worker's non-terminal session, or nil if none.
func (s *Store) ActiveSession(userID string) (*timer.Session, error) {
	var sess timer.Session
	err := s.db.
		Where("user_id = ? AND state <> ?", userID, timer.StateStopped).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// OpenSessions returns all non-terminal sessions for a worker. The invariant
// allows at most one, but recovery sweeps read defensively.
func (s *Store) OpenSessions(userID string) ([]timer.Session, error) {
	var sessions []timer.Session
	err := s.db.
		Where("user_id = ? AND state <> ?", userID, timer.StateStopped).
		Order("started_at").
		Find(&sessions).Error
	return sessions, err
}

// AllOpenSessions returns every non-terminal session across all workers.
func (s *Store) AllOpenSessions() ([]timer.Session, error) {
	var sessions []timer.Session
	err := s.db.Where("state <> ?", timer.StateStopped).Find(&sessions).Error
	return sessions, err
}

func (s *Store) SaveSession(sess *timer.Session) error {
	return s.db.Save(sess).Error
}

// DeleteSession removes a session row outright. Only the recovery discard
// path uses this: a discarded session never finalized, so it leaves no log.
func (s *Store) DeleteSession(id string) error {
	res := s.db.Delete(&timer.Session{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "session", id)
	}
	return nil
}

// StopSession freezes the session, emits its log, and clears any recovery
// snapshot taken from it, all in one transaction. A crash between the steps
// cannot leave a stopped session without a log, and a finalized span can never
// be restored again: the log already bills those minutes.
func (s *Store) StopSession(sess *timer.Session, entry *timer.Log) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(sess).Error; err != nil {
			return err
		}
		if err := tx.Delete(&timer.RecoverySnapshot{}, "session_id = ?", sess.ID).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}
