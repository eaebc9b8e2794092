package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aIcoder504/apbmt-2025-conference-system/models"
)

// ErrNotFound is returned by single-record store operations when no row matches.
var ErrNotFound = errors.New("abstract not found")

// TransactionFailureError is a store-level fault that aborted a status mutation.
// The transaction has been rolled back when this is returned.
type TransactionFailureError struct {
	Detail string
	Err    error
}

func (e *TransactionFailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *TransactionFailureError) Unwrap() error { return e.Err }

// StatusChange is the mutation applied to every matched abstract.
type StatusChange struct {
	Status    string
	Comments  *string
	ChangedBy string
	At        time.Time
}

// UpdatedRow is one abstract as it looks after a successful status change.
type UpdatedRow struct {
	ID               int64
	UserID           *int64
	Title            string
	PresenterName    string
	SubmissionNumber string
	OldStatus        string
	NewStatus        string
	Comments         *string
	UpdatedAt        time.Time
}

// Recipient is the notification target for one abstract.
type Recipient struct {
	AbstractID int64  `gorm:"column:abstract_id"`
	Email      string `gorm:"column:email"`
	FullName   string `gorm:"column:full_name"`
}

// StatusCounts aggregates abstracts per status.
type StatusCounts struct {
	ByStatus    map[string]int64
	Total       int64
	LastUpdated *time.Time
}

// StatusStore is the persistence boundary of the status-update pipeline.
type StatusStore interface {
	// UpdateOne changes a single abstract and returns ErrNotFound when it does not exist.
	UpdateOne(ctx context.Context, id int64, change StatusChange) (*UpdatedRow, error)
	// UpdateMany changes every existing abstract in ids inside one transaction.
	// Missing ids are absent from the result.
	UpdateMany(ctx context.Context, ids []int64, change StatusChange) ([]UpdatedRow, error)
	Get(ctx context.Context, id int64) (*models.Abstract, error)
	History(ctx context.Context, id int64) ([]models.AbstractStatusHistory, error)
	CountByStatus(ctx context.Context) (*StatusCounts, error)
	Recipient(ctx context.Context, abstractID int64) (*Recipient, error)
	Ping(ctx context.Context) error
}

type GormStatusStore struct {
	db *gorm.DB
}

func NewGormStatusStore(db *gorm.DB) *GormStatusStore {
	return &GormStatusStore{db: db}
}

func (s *GormStatusStore) UpdateOne(ctx context.Context, id int64, change StatusChange) (*UpdatedRow, error) {
	rows, err := s.UpdateMany(ctx, []int64{id}, change)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *GormStatusStore) UpdateMany(ctx context.Context, ids []int64, change StatusChange) (updated []UpdatedRow, err error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if change.At.IsZero() {
		change.At = time.Now()
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, &TransactionFailureError{Detail: "begin transaction", Err: tx.Error}
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			updated = nil
			err = &TransactionFailureError{Detail: "status update panicked", Err: fmt.Errorf("%v", r)}
		}
	}()

	var locked []models.Abstract
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "user_id", "title", "presenter_name", "status", "abstract_number").
		Where("id IN ?", ids).
		Order("id").
		Find(&locked).Error; err != nil {
		tx.Rollback()
		return nil, &TransactionFailureError{Detail: "lock abstracts", Err: err}
	}

	if len(locked) == 0 {
		if err := tx.Commit().Error; err != nil {
			return nil, &TransactionFailureError{Detail: "commit transaction", Err: err}
		}
		return nil, nil
	}

	matched := make([]int64, 0, len(locked))
	for _, a := range locked {
		matched = append(matched, a.ID)
	}

	if err := tx.Model(&models.Abstract{}).
		Where("id IN ?", matched).
		Updates(map[string]interface{}{
			"status":            change.Status,
			"reviewer_comments": change.Comments,
			"updated_at":        change.At,
		}).Error; err != nil {
		tx.Rollback()
		return nil, &TransactionFailureError{Detail: "update abstracts", Err: err}
	}

	history := make([]models.AbstractStatusHistory, 0, len(locked))
	updated = make([]UpdatedRow, 0, len(locked))
	for i := range locked {
		a := &locked[i]
		old := a.Status
		history = append(history, models.AbstractStatusHistory{
			AbstractID: a.ID,
			OldStatus:  &old,
			NewStatus:  change.Status,
			ChangedBy:  change.ChangedBy,
			Comments:   change.Comments,
			ChangedAt:  change.At,
		})
		updated = append(updated, UpdatedRow{
			ID:               a.ID,
			UserID:           a.UserID,
			Title:            a.Title,
			PresenterName:    a.PresenterName,
			SubmissionNumber: a.SubmissionNumber(),
			OldStatus:        old,
			NewStatus:        change.Status,
			Comments:         change.Comments,
			UpdatedAt:        change.At,
		})
	}

	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, &TransactionFailureError{Detail: "record status history", Err: err}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, &TransactionFailureError{Detail: "commit transaction", Err: err}
	}
	return updated, nil
}

func (s *GormStatusStore) Get(ctx context.Context, id int64) (*models.Abstract, error) {
	var abstract models.Abstract
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&abstract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &abstract, nil
}

func (s *GormStatusStore) History(ctx context.Context, id int64) ([]models.AbstractStatusHistory, error) {
	var rows []models.AbstractStatusHistory
	err := s.db.WithContext(ctx).
		Where("abstract_id = ?", id).
		Order("changed_at DESC").
		Order("history_id DESC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStatusStore) CountByStatus(ctx context.Context) (*StatusCounts, error) {
	var grouped []struct {
		Status string
		Count  int64
	}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Abstract{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&grouped).Error; err != nil {
		return nil, fmt.Errorf("count abstracts by status: %w", err)
	}

	counts := &StatusCounts{ByStatus: make(map[string]int64, len(models.ReportedStatuses))}
	for _, status := range models.ReportedStatuses {
		counts.ByStatus[status] = 0
	}
	for _, g := range grouped {
		counts.ByStatus[g.Status] += g.Count
		counts.Total += g.Count
	}

	var last struct {
		LastUpdated *time.Time
	}
	if err := db.Model(&models.Abstract{}).
		Select("MAX(updated_at) AS last_updated").
		Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("load last update time: %w", err)
	}
	counts.LastUpdated = last.LastUpdated
	return counts, nil
}

func (s *GormStatusStore) Recipient(ctx context.Context, abstractID int64) (*Recipient, error) {
	var rows []Recipient
	if err := s.db.WithContext(ctx).
		Table("abstracts AS a").
		Select("a.id AS abstract_id, u.email, u.full_name").
		Joins("LEFT JOIN users AS u ON u.id = a.user_id").
		Where("a.id = ?", abstractID).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *GormStatusStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
