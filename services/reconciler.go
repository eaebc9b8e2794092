package services

import (
	"fmt"
	"math"
	"time"
)

// Per-item failure reasons.
const (
	ReasonNotFound          = "Abstract not found or update failed"
	ReasonInvalidIdentifier = "invalid identifier"
	reasonDatabasePrefix    = "Database error: "
	reasonProcessingPrefix  = "processing error: "
)

// UpdateResult is the outcome for one requested identifier.
type UpdateResult struct {
	ID        any        `json:"id"`
	Success   bool       `json:"success"`
	Title     string     `json:"title,omitempty"`
	Author    string     `json:"author,omitempty"`
	OldStatus string     `json:"oldStatus,omitempty"`
	NewStatus string     `json:"newStatus,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Error     string     `json:"error,omitempty"`

	key int64
	row *UpdatedRow
}

// BatchSummary aggregates the per-item results of one run.
type BatchSummary struct {
	Results    []UpdateResult
	Successful int
	Failed     int
	Total      int
}

// SuccessRate is successful/total as a percentage rounded to one decimal.
func (s *BatchSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return math.Round(float64(s.Successful)/float64(s.Total)*1000) / 10
}

func (s *BatchSummary) SuccessRateLabel() string {
	return fmt.Sprintf("%.1f%%", s.SuccessRate())
}

// UpdatedRows returns the store rows behind successful results, one per
// distinct abstract, in request order.
func (s *BatchSummary) UpdatedRows() []UpdatedRow {
	seen := make(map[int64]struct{}, s.Successful)
	rows := make([]UpdatedRow, 0, s.Successful)
	for _, r := range s.Results {
		if !r.Success || r.row == nil {
			continue
		}
		if _, ok := seen[r.key]; ok {
			continue
		}
		seen[r.key] = struct{}{}
		rows = append(rows, *r.row)
	}
	return rows
}

// Reconcile produces exactly one result per requested identifier, in request
// order, by looking each one up in the rows the store reported as changed.
func Reconcile(requested []RequestedID, rows []UpdatedRow) *BatchSummary {
	byID := make(map[int64]*UpdatedRow, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	summary := &BatchSummary{Results: make([]UpdateResult, 0, len(requested)), Total: len(requested)}
	for _, req := range requested {
		result := UpdateResult{ID: req.Raw, key: req.Key}
		switch row, ok := byID[req.Key]; {
		case !req.Valid():
			result.Error = ReasonInvalidIdentifier
		case !ok:
			result.Error = ReasonNotFound
		default:
			updatedAt := row.UpdatedAt
			result.Success = true
			result.Title = row.Title
			result.Author = row.PresenterName
			result.OldStatus = row.OldStatus
			result.NewStatus = row.NewStatus
			result.UpdatedAt = &updatedAt
			result.row = row
			summary.Successful++
		}
		summary.Results = append(summary.Results, result)
	}
	summary.Failed = summary.Total - summary.Successful
	return summary
}

// FailAll marks every requested identifier as failed with the same reason.
func FailAll(requested []RequestedID, reason string) *BatchSummary {
	summary := &BatchSummary{Results: make([]UpdateResult, 0, len(requested)), Total: len(requested)}
	for _, req := range requested {
		summary.Results = append(summary.Results, UpdateResult{ID: req.Raw, key: req.Key, Error: reason})
	}
	summary.Failed = summary.Total
	return summary
}

// Errors lists the human-readable problems of a summary, or nil when there are none.
func (s *BatchSummary) Errors() []string {
	switch {
	case s.Successful == 0:
		return []string{"No abstracts were updated"}
	case s.Failed > 0:
		return []string{fmt.Sprintf("%d abstracts could not be updated", s.Failed)}
	default:
		return nil
	}
}
