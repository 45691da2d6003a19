package store

import (
	"gorm.io/gorm"

	"github.com/mesworks/floortimer/internal/timer"
)

// UpsertSnapshot writes a recovery snapshot, replacing any existing snapshot
// for the same worker and workflow so at most one per workflow survives.
func (s *Store) UpsertSnapshot(snap *timer.RecoverySnapshot) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ? AND workflow = ?", snap.UserID, snap.Workflow).
			Delete(&timer.RecoverySnapshot{}).Error; err != nil {
			return err
		}
		return tx.Create(snap).Error
	})
}

func (s *Store) GetSnapshot(saveID string) (*timer.RecoverySnapshot, error) {
	var snap timer.RecoverySnapshot
	if err := s.db.First(&snap, "id = ?", saveID).Error; err != nil {
		return nil, notFound(err, "snapshot", saveID)
	}
	return &snap, nil
}

func (s *Store) SnapshotsForUser(userID string) ([]timer.RecoverySnapshot, error) {
	var snaps []timer.RecoverySnapshot
	err := s.db.Where("user_id = ?", userID).Order("saved_at").Find(&snaps).Error
	return snaps, err
}

// DeleteSnapshot removes a snapshot. ErrNotFound when it was already consumed.
func (s *Store) DeleteSnapshot(saveID string) error {
	res := s.db.Delete(&timer.RecoverySnapshot{}, "id = ?", saveID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "snapshot", saveID)
	}
	return nil
}

// DeleteSnapshotsForUser removes all of a worker's snapshots and reports how
// many were discarded.
func (s *Store) DeleteSnapshotsForUser(userID string) (int, error) {
	res := s.db.Delete(&timer.RecoverySnapshot{}, "user_id = ?", userID)
	return int(res.RowsAffected), res.Error
}
