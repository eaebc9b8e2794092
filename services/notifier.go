package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
)

// ErrRecipientMissing marks a job whose abstract has no reachable owner address.
var ErrRecipientMissing = errors.New("User email not found")

// NotificationJob describes one "status changed" email.
type NotificationJob struct {
	RequestID        string    `json:"requestId"`
	AbstractID       int64     `json:"abstractId"`
	SubmissionNumber string    `json:"submissionNumber"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	OldStatus        string    `json:"oldStatus"`
	NewStatus        string    `json:"newStatus"`
	Comments         *string   `json:"comments,omitempty"`
	ChangedAt        time.Time `json:"changedAt"`
}

// JobsFromRows builds one notification job per updated abstract.
func JobsFromRows(requestID string, rows []UpdatedRow) []NotificationJob {
	jobs := make([]NotificationJob, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, NotificationJob{
			RequestID:        requestID,
			AbstractID:       row.ID,
			SubmissionNumber: row.SubmissionNumber,
			Title:            row.Title,
			Author:           row.PresenterName,
			OldStatus:        row.OldStatus,
			NewStatus:        row.NewStatus,
			Comments:         row.Comments,
			ChangedAt:        row.UpdatedAt,
		})
	}
	return jobs
}

// StatusEmailSender renders and delivers one status email.
type StatusEmailSender interface {
	SendStatusEmail(ctx context.Context, to Recipient, job NotificationJob) error
}

// RecipientLookup resolves the owner address of an abstract.
type RecipientLookup interface {
	Recipient(ctx context.Context, abstractID int64) (*Recipient, error)
}

// TaskEnqueuer hands a job to an out-of-process worker.
type TaskEnqueuer interface {
	EnqueueStatusEmail(ctx context.Context, job NotificationJob) error
}

// NotificationReport is the delivery outcome of an awaited dispatch.
type NotificationReport struct {
	EmailsSent   int      `json:"emailsSent"`
	EmailsFailed int      `json:"emailsFailed"`
	EmailsTotal  int      `json:"emailsTotal"`
	SuccessRate  string   `json:"successRate"`
	Errors       []string `json:"errors,omitempty"`
}

// Dispatcher fans status emails out according to the configured mode.
// Delivery failures never reach the caller's control flow; in async and queue
// mode they are only logged.
type Dispatcher struct {
	mode       string
	delay      time.Duration
	sender     StatusEmailSender
	recipients RecipientLookup
	queue      TaskEnqueuer
	logger     zerolog.Logger

	wg    sync.WaitGroup
	sleep func(context.Context, time.Duration)
}

func NewDispatcher(p config.PipelineSettings, sender StatusEmailSender, recipients RecipientLookup, queue TaskEnqueuer) *Dispatcher {
	return &Dispatcher{
		mode:       p.NotifyMode,
		delay:      p.NotifyDelay,
		sender:     sender,
		recipients: recipients,
		queue:      queue,
		logger:     config.Logger.With().Str("component", "notifier").Logger(),
		sleep:      sleepContext,
	}
}

func (d *Dispatcher) Mode() string { return d.mode }

// Enabled reports whether status changes produce emails at all. In queue
// mode the worker owns the mail transport, so only the queue is required.
func (d *Dispatcher) Enabled() bool {
	switch {
	case d.mode == config.NotifyDisabled:
		return false
	case d.mode == config.NotifyQueue && d.queue != nil:
		return true
	default:
		return d.sender != nil
	}
}

// Dispatch hands every job to the email collaborator. Only the awaited mode
// returns a report; the other modes return nil immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []NotificationJob) *NotificationReport {
	if len(jobs) == 0 || !d.Enabled() {
		return nil
	}

	switch d.mode {
	case config.NotifyAwaited:
		return d.Await(ctx, jobs)
	case config.NotifyQueue:
		if d.queue != nil {
			d.dispatchQueued(ctx, jobs)
			return nil
		}
		d.logger.Warn().Msg("notification queue not configured, falling back to async delivery")
	}
	d.dispatchDetached(ctx, jobs)
	return nil
}

// Wait blocks until every detached delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatchDetached(ctx context.Context, jobs []NotificationJob) {
	detached := context.WithoutCancel(ctx)
	for _, job := range jobs {
		d.wg.Add(1)
		go func(job NotificationJob) {
			defer d.wg.Done()
			if err := d.Deliver(detached, job); err != nil {
				d.logFailure(job, err)
			}
		}(job)
	}
}

// Await sends the jobs one after another, pausing between them, and reports
// how many were delivered. A failed job never stops the ones after it.
func (d *Dispatcher) Await(ctx context.Context, jobs []NotificationJob) *NotificationReport {
	report := &NotificationReport{EmailsTotal: len(jobs)}
	for i, job := range jobs {
		if i > 0 && d.delay > 0 {
			d.sleep(ctx, d.delay)
		}
		if err := d.Deliver(ctx, job); err != nil {
			d.logFailure(job, err)
			report.addFailure(err.Error())
			continue
		}
		report.EmailsSent++
	}
	report.finalize()
	return report
}

func (r *NotificationReport) addFailure(msg string) {
	r.EmailsFailed++
	r.Errors = append(r.Errors, msg)
}

func (r *NotificationReport) finalize() {
	rate := 0.0
	if r.EmailsTotal > 0 {
		rate = math.Round(float64(r.EmailsSent)/float64(r.EmailsTotal)*1000) / 10
	}
	r.SuccessRate = fmt.Sprintf("%.1f%%", rate)
}

func (d *Dispatcher) dispatchQueued(ctx context.Context, jobs []NotificationJob) {
	for _, job := range jobs {
		if err := d.queue.EnqueueStatusEmail(ctx, job); err != nil {
			d.logFailure(job, fmt.Errorf("enqueue: %w", err))
		}
	}
}

// Deliver resolves the recipient and sends one email. A panic inside the
// sender is converted into an error so it cannot take other jobs down.
func (d *Dispatcher) Deliver(ctx context.Context, job NotificationJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("email sender panicked: %v", r)
		}
	}()

	if d.recipients == nil {
		return ErrRecipientMissing
	}
	to, err := d.recipients.Recipient(ctx, job.AbstractID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("abstract %d not found", job.AbstractID)
		}
		return fmt.Errorf("lookup recipient: %w", err)
	}
	if to == nil || to.Email == "" {
		return fmt.Errorf("%w for abstract %d", ErrRecipientMissing, job.AbstractID)
	}

	if err := d.sender.SendStatusEmail(ctx, *to, job); err != nil {
		return err
	}
	d.logger.Info().
		Str("request_id", job.RequestID).
		Int64("abstract_id", job.AbstractID).
		Str("status", job.NewStatus).
		Msg("status email sent")
	return nil
}

func (d *Dispatcher) logFailure(job NotificationJob, err error) {
	d.logger.Warn().
		Err(err).
		Str("request_id", job.RequestID).
		Int64("abstract_id", job.AbstractID).
		Str("status", job.NewStatus).
		Msg("status email failed")
}

func sleepContext(ctx context.Context, delay time.Duration) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
