package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aIcoder504/apbmt-2025-conference-system/models"
)

// memoryStore is an in-memory StatusStore with the same all-or-nothing
// semantics as the SQL store.
type memoryStore struct {
	mu        sync.Mutex
	abstracts map[int64]*models.Abstract
	emails    map[int64]string
	history   []models.AbstractStatusHistory
	failWith  error
	panicWith any
	calls     int
}

func newMemoryStore(abstracts ...models.Abstract) *memoryStore {
	s := &memoryStore{abstracts: map[int64]*models.Abstract{}, emails: map[int64]string{}}
	for i := range abstracts {
		a := abstracts[i]
		s.abstracts[a.ID] = &a
		s.emails[a.ID] = fmt.Sprintf("author%d@example.org", a.ID)
	}
	return s
}

func (s *memoryStore) UpdateOne(ctx context.Context, id int64, change StatusChange) (*UpdatedRow, error) {
	rows, err := s.UpdateMany(ctx, []int64{id}, change)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *memoryStore) UpdateMany(_ context.Context, ids []int64, change StatusChange) ([]UpdatedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.failWith != nil {
		return nil, &TransactionFailureError{Detail: "update abstracts", Err: s.failWith}
	}

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var rows []UpdatedRow
	for _, id := range sorted {
		a, ok := s.abstracts[id]
		if !ok {
			continue
		}
		old := a.Status
		a.Status = change.Status
		a.ReviewerComments = change.Comments
		a.UpdatedAt = change.At
		s.history = append(s.history, models.AbstractStatusHistory{
			AbstractID: id, OldStatus: &old, NewStatus: change.Status, ChangedBy: change.ChangedBy, ChangedAt: change.At,
		})
		rows = append(rows, UpdatedRow{
			ID: id, UserID: a.UserID, Title: a.Title, PresenterName: a.PresenterName,
			SubmissionNumber: a.SubmissionNumber(), OldStatus: old, NewStatus: change.Status,
			Comments: change.Comments, UpdatedAt: change.At,
		})
	}
	return rows, nil
}

func (s *memoryStore) Get(_ context.Context, id int64) (*models.Abstract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.abstracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *memoryStore) History(_ context.Context, id int64) ([]models.AbstractStatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AbstractStatusHistory
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].AbstractID == id {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}

func (s *memoryStore) CountByStatus(context.Context) (*StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := &StatusCounts{ByStatus: map[string]int64{}}
	for _, status := range models.ReportedStatuses {
		counts.ByStatus[status] = 0
	}
	var last time.Time
	for _, a := range s.abstracts {
		counts.ByStatus[a.Status]++
		counts.Total++
		if a.UpdatedAt.After(last) {
			last = a.UpdatedAt
		}
	}
	if !last.IsZero() {
		counts.LastUpdated = &last
	}
	return counts, nil
}

func (s *memoryStore) Recipient(_ context.Context, abstractID int64) (*Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.abstracts[abstractID]; !ok {
		return nil, ErrNotFound
	}
	return &Recipient{AbstractID: abstractID, Email: s.emails[abstractID], FullName: "Author"}, nil
}

func (s *memoryStore) Ping(context.Context) error {
	if s.failWith != nil {
		return s.failWith
	}
	return nil
}

func (s *memoryStore) status(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abstracts[id].Status
}

func (s *memoryStore) storeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingSender records deliveries and fails for configured abstracts.
type recordingSender struct {
	mu      sync.Mutex
	sent    []int64
	failFor map[int64]error
	panicOn int64
}

func newRecordingSender() *recordingSender {
	return &recordingSender{failFor: map[int64]error{}}
}

func (r *recordingSender) SendStatusEmail(ctx context.Context, _ Recipient, job NotificationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.panicOn != 0 && job.AbstractID == r.panicOn {
		panic("template exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[job.AbstractID]; ok {
		return err
	}
	r.sent = append(r.sent, job.AbstractID)
	return nil
}

func (r *recordingSender) sentIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]int64(nil), r.sent...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var errSMTPDown = errors.New("smtp: connection refused")

func abstractFixture(id int64, status string) models.Abstract {
	return models.Abstract{
		ID:            id,
		Title:         fmt.Sprintf("Abstract %d", id),
		PresenterName: fmt.Sprintf("Presenter %d", id),
		Status:        status,
	}
}
