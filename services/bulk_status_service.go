package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
	"github.com/aIcoder504/apbmt-2025-conference-system/models"
)

// Operation outcomes reported in X-Operation-Status.
const (
	OperationSuccess = "SUCCESS"
	OperationFailed  = "FAILED"
	OperationError   = "ERROR"
)

// BulkOutcome is everything one pipeline run produced.
type BulkOutcome struct {
	RequestID       string
	TargetStatus    string
	Summary         *BatchSummary
	Errors          []string
	Fatal           error
	OperationStatus string
	Notifications   *NotificationReport
	ProcessingTime  time.Duration
	Database        string
}

// DatabaseUpdated reports whether at least one row was committed.
func (o *BulkOutcome) DatabaseUpdated() bool {
	return o.Fatal == nil && o.Summary != nil && o.Summary.Successful > 0
}

// BulkStatusService runs the status-update pipeline:
// validate, normalise, mutate, reconcile, notify.
type BulkStatusService struct {
	store      StatusStore
	validator  *BatchValidator
	dispatcher *Dispatcher
	pipeline   config.PipelineSettings
	database   string
	now        func() time.Time
	logger     zerolog.Logger
}

func NewBulkStatusService(store StatusStore, dispatcher *Dispatcher, pipeline config.PipelineSettings, databaseLabel string) *BulkStatusService {
	return &BulkStatusService{
		store:      store,
		validator:  NewBatchValidator(pipeline),
		dispatcher: dispatcher,
		pipeline:   pipeline,
		database:   databaseLabel,
		now:        time.Now,
		logger:     config.Logger.With().Str("component", "bulk_status").Logger(),
	}
}

func (s *BulkStatusService) Database() string { return s.database }

// Run executes one status-update request. The only error returned is a
// *ValidationError; every other failure is folded into the outcome.
func (s *BulkStatusService) Run(ctx context.Context, requestID string, req *BatchUpdateRequest) (outcome *BulkOutcome, err error) {
	started := s.now()
	log := s.logger.With().Str("request_id", requestID).Logger()

	batch, err := s.validator.Validate(req)
	if err != nil {
		log.Info().Err(err).Msg("status update rejected")
		return nil, err
	}

	// A started batch runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	outcome = &BulkOutcome{RequestID: requestID, TargetStatus: batch.Status, Database: s.database}
	defer func() {
		if r := recover(); r != nil {
			detail := fmt.Sprint(r)
			log.Error().Str("panic", detail).Msg("status update pipeline panicked")
			outcome.Summary = FailAll(batch.IDs, reasonProcessingPrefix+detail)
			outcome.Fatal = fmt.Errorf("processing error: %s", detail)
			outcome.Errors = []string{reasonProcessingPrefix + detail}
			outcome.OperationStatus = OperationError
			outcome.Notifications = nil
			err = nil
		}
		outcome.ProcessingTime = s.now().Sub(started)
	}()

	change := StatusChange{
		Status:    batch.Status,
		Comments:  batch.Comments,
		ChangedBy: batch.UpdatedBy,
		At:        s.now(),
	}

	rows, storeErr := s.mutate(ctx, batch.Keys(), change)
	if storeErr != nil {
		log.Error().Err(storeErr).Int("requested", len(batch.IDs)).Msg("status update transaction failed")
		reason := reasonDatabasePrefix + storeErr.Error()
		outcome.Summary = FailAll(batch.IDs, reason)
		outcome.Fatal = storeErr
		outcome.Errors = []string{reason}
		outcome.OperationStatus = OperationFailed
		return outcome, nil
	}

	outcome.Summary = Reconcile(batch.IDs, rows)
	outcome.Errors = outcome.Summary.Errors()
	outcome.OperationStatus = OperationFailed
	if outcome.Summary.Successful > 0 {
		outcome.OperationStatus = OperationSuccess
	}

	log.Info().
		Str("status", batch.Status).
		Int("successful", outcome.Summary.Successful).
		Int("failed", outcome.Summary.Failed).
		Int("total", outcome.Summary.Total).
		Msg("status update completed")

	if s.dispatcher != nil {
		outcome.Notifications = s.dispatcher.Dispatch(ctx, JobsFromRows(requestID, outcome.Summary.UpdatedRows()))
	}
	return outcome, nil
}

func (s *BulkStatusService) mutate(ctx context.Context, keys []int64, change StatusChange) ([]UpdatedRow, error) {
	switch len(keys) {
	case 0:
		return nil, nil
	case 1:
		row, err := s.store.UpdateOne(ctx, keys[0], change)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []UpdatedRow{*row}, nil
	default:
		return s.store.UpdateMany(ctx, keys, change)
	}
}

// AbstractDetail is the single-record view with its review history.
type AbstractDetail struct {
	Abstract *models.Abstract              `json:"abstract"`
	History  []models.AbstractStatusHistory `json:"history"`
}

// Lookup loads one abstract and its status history by external identifier.
func (s *BulkStatusService) Lookup(ctx context.Context, rawID any) (*AbstractDetail, error) {
	id, err := NormalizeID(rawID)
	if err != nil {
		return nil, err
	}
	abstract, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	if history == nil {
		history = []models.AbstractStatusHistory{}
	}
	return &AbstractDetail{Abstract: abstract, History: history}, nil
}

// Features describes the pipeline configuration advertised to clients.
type Features struct {
	MaxBulkSize        int      `json:"maxBulkSize"`
	SupportedStatuses  []string `json:"supportedStatuses"`
	EmailNotifications bool     `json:"emailNotifications"`
	NotifyMode         string   `json:"notifyMode"`
	AuditLogging       bool     `json:"auditLogging"`
	BulkOperations     bool     `json:"bulkOperations"`
}

// HealthReport is the aggregate view returned when no id is given.
type HealthReport struct {
	Healthy     bool             `json:"healthy"`
	Database    string           `json:"database"`
	StatusCount map[string]int64 `json:"statusCounts"`
	Total       int64            `json:"total"`
	LastUpdated *time.Time       `json:"lastUpdated"`
	Features    Features         `json:"features"`
}

func (s *BulkStatusService) Features() Features {
	mode := s.pipeline.NotifyMode
	enabled := false
	if s.dispatcher != nil {
		mode = s.dispatcher.Mode()
		enabled = s.dispatcher.Enabled()
	}
	return Features{
		MaxBulkSize:        s.validator.MaxSize(),
		SupportedStatuses:  s.validator.Allowed(),
		EmailNotifications: enabled,
		NotifyMode:         mode,
		AuditLogging:       true,
		BulkOperations:     true,
	}
}

// Statistics reports store health, counts per status and the feature block.
func (s *BulkStatusService) Statistics(ctx context.Context) (*HealthReport, error) {
	if err := s.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &HealthReport{
		Healthy:     true,
		Database:    s.database,
		StatusCount: counts.ByStatus,
		Total:       counts.Total,
		LastUpdated: counts.LastUpdated,
		Features:    s.Features(),
	}, nil
}

// SendStatusEmails re-sends the status email for each abstract in the
// request without changing any row. Delivery is always awaited.
func (s *BulkStatusService) SendStatusEmails(ctx context.Context, requestID string, req *BatchUpdateRequest) (*NotificationReport, error) {
	batch, err := s.validator.Validate(req)
	if err != nil {
		return nil, err
	}
	if s.dispatcher == nil || s.dispatcher.sender == nil {
		return nil, errors.New("email notifications are not configured")
	}
	ctx = context.WithoutCancel(ctx)

	report := &NotificationReport{EmailsTotal: len(batch.IDs)}
	jobs := make([]NotificationJob, 0, len(batch.IDs))
	now := s.now()
	for _, id := range batch.IDs {
		if !id.Valid() {
			report.addFailure(fmt.Sprintf("Abstract %v: %s", id.Raw, ReasonInvalidIdentifier))
			continue
		}
		abstract, err := s.store.Get(ctx, id.Key)
		if errors.Is(err, ErrNotFound) {
			report.addFailure(fmt.Sprintf("Abstract %d not found", id.Key))
			continue
		}
		if err != nil {
			report.addFailure(fmt.Sprintf("Error processing abstract %d: %v", id.Key, err))
			continue
		}
		jobs = append(jobs, NotificationJob{
			RequestID:        requestID,
			AbstractID:       abstract.ID,
			SubmissionNumber: abstract.SubmissionNumber(),
			Title:            abstract.Title,
			Author:           abstract.PresenterName,
			OldStatus:        abstract.Status,
			NewStatus:        batch.Status,
			Comments:         batch.Comments,
			ChangedAt:        now,
		})
	}

	sent := s.dispatcher.Await(ctx, jobs)
	report.EmailsSent = sent.EmailsSent
	report.EmailsFailed += sent.EmailsFailed
	report.Errors = append(report.Errors, sent.Errors...)
	report.finalize()

	s.logger.Info().
		Str("request_id", requestID).
		Int("sent", report.EmailsSent).
		Int("total", report.EmailsTotal).
		Msg("status emails sent")
	return report, nil
}
