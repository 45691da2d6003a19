package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mesworks/floortimer/internal/timer"
)

// LogFilter narrows log queries. Zero fields are ignored.
type LogFilter struct {
	UserID   string
	Workflow timer.Workflow
	RefID    string
	OrderID  string
	From     time.Time
	To       time.Time
}

func (s *Store) CreateLog(entry *timer.Log) error {
	return s.db.Create(entry).Error
}

func (s *Store) GetLog(id string) (*timer.Log, error) {
	var entry timer.Log
	if err := s.db.First(&entry, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "log", id)
	}
	return &entry, nil
}

// LogBySession returns the log emitted for a session, if any. Used by the
// idempotent stop path to answer a replayed stop with the original record.
func (s *Store) LogBySession(sessionID string) (*timer.Log, error) {
	var entry timer.Log
	err := s.db.First(&entry, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Store) SaveLog(entry *timer.Log) error {
	return s.db.Save(entry).Error
}

// Logs returns matching logs ordered by completion time.
func (s *Store) Logs(f LogFilter) ([]timer.Log, error) {
	q := s.db.Model(&timer.Log{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Workflow != "" {
		q = q.Where("workflow = ?", f.Workflow)
	}
	if f.RefID != "" {
		q = q.Where("ref_id = ?", f.RefID)
	}
	if f.OrderID != "" {
		q = q.Where("order_id = ?", f.OrderID)
	}
	if !f.From.IsZero() {
		q = q.Where("completed_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("completed_at < ?", f.To)
	}
	var logs []timer.Log
	err := q.Order("completed_at").Find(&logs).Error
	return logs, err
}

// SumLogMinutes totals duration_minutes over the filter window.
func (s *Store) SumLogMinutes(f LogFilter) (float64, error) {
	logs, err := s.Logs(f)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, l := range logs {
		total += l.DurationMinutes
	}
	return total, nil
}

// UserIDsWithLogsBetween lists workers who completed any work in the window.
// The limit guard unions this with open-session owners each evaluation cycle.
func (s *Store) UserIDsWithLogsBetween(from, to time.Time) ([]string, error) {
	var ids []string
	err := s.db.Model(&timer.Log{}).
		Where("completed_at >= ? AND completed_at < ?", from, to).
		Distinct().
		Pluck("user_id", &ids).Error
	return ids, err
}
