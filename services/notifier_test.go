package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
	"github.com/aIcoder504/apbmt-2025-conference-system/models"
)

func notifySettings(mode string) config.PipelineSettings {
	s := config.DefaultPipelineSettings()
	s.NotifyMode = mode
	return s
}

func jobsFor(ids ...int64) []NotificationJob {
	jobs := make([]NotificationJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, NotificationJob{
			RequestID:        "REQ_test",
			AbstractID:       id,
			SubmissionNumber: strconv.FormatInt(id, 10),
			NewStatus:        models.StatusApproved,
		})
	}
	return jobs
}

func fiveAbstractStore() *memoryStore {
	return newMemoryStore(
		abstractFixture(1, "pending"),
		abstractFixture(2, "pending"),
		abstractFixture(3, "pending"),
		abstractFixture(4, "pending"),
		abstractFixture(5, "pending"),
	)
}

func TestDispatcherAwaitedIsolatesFailures(t *testing.T) {
	sender := newRecordingSender()
	sender.failFor[2] = errSMTPDown
	d := NewDispatcher(notifySettings(config.NotifyAwaited), sender, fiveAbstractStore(), nil)

	var pauses []time.Duration
	d.sleep = func(_ context.Context, delay time.Duration) { pauses = append(pauses, delay) }

	report := d.Dispatch(context.Background(), jobsFor(1, 2, 3, 4, 5))
	require.NotNil(t, report)

	assert.Equal(t, []int64{1, 3, 4, 5}, sender.sentIDs())
	assert.Equal(t, 4, report.EmailsSent)
	assert.Equal(t, 1, report.EmailsFailed)
	assert.Equal(t, 5, report.EmailsTotal)
	assert.Equal(t, "80.0%", report.SuccessRate)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "connection refused")

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}, pauses)
}

func TestDispatcherAsyncSurvivesFailureAndPanic(t *testing.T) {
	sender := newRecordingSender()
	sender.failFor[2] = errSMTPDown
	sender.panicOn = 4
	d := NewDispatcher(notifySettings(config.NotifyAsync), sender, fiveAbstractStore(), nil)

	report := d.Dispatch(context.Background(), jobsFor(1, 2, 3, 4, 5))
	assert.Nil(t, report)

	d.Wait()
	assert.Equal(t, []int64{1, 3, 5}, sender.sentIDs())
}

type fakeTransport struct {
	mu       sync.Mutex
	to       [][]string
	subjects []string
	err      error
}

func (f *fakeTransport) SendMail(to []string, subject, html, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.subjects = append(f.subjects, subject)
	return nil
}

func TestDispatcherAsyncOutlivesRequestContext(t *testing.T) {
	transport := &fakeTransport{}
	sender := NewMailStatusSender(transport, config.ConferenceSettings{Name: "APBMT 2025"})
	d := NewDispatcher(notifySettings(config.NotifyAsync), sender, fiveAbstractStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Dispatch(ctx, jobsFor(1))
	d.Wait()

	require.Len(t, transport.to, 1)
	assert.Equal(t, []string{"author1@example.org"}, transport.to[0])
	assert.Equal(t, "Abstract Review APPROVED - 1", transport.subjects[0])
}

func TestDispatcherMissingRecipientCountsAsFailure(t *testing.T) {
	store := fiveAbstractStore()
	store.emails[3] = ""
	sender := newRecordingSender()
	d := NewDispatcher(notifySettings(config.NotifyAwaited), sender, store, nil)
	d.sleep = func(context.Context, time.Duration) {}

	report := d.Dispatch(context.Background(), jobsFor(3, 4, 77))

	assert.Equal(t, 1, report.EmailsSent)
	assert.Equal(t, 2, report.EmailsFailed)
	assert.Equal(t, "33.3%", report.SuccessRate)
	assert.Equal(t, []string{
		"User email not found for abstract 3",
		"abstract 77 not found",
	}, report.Errors)
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []NotificationJob
	err  error
}

func (q *recordingQueue) EnqueueStatusEmail(_ context.Context, job NotificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestDispatcherQueueModeEnqueuesEveryJob(t *testing.T) {
	sender := newRecordingSender()
	queue := &recordingQueue{}
	d := NewDispatcher(notifySettings(config.NotifyQueue), sender, fiveAbstractStore(), queue)

	assert.Nil(t, d.Dispatch(context.Background(), jobsFor(1, 2)))
	assert.Len(t, queue.jobs, 2)
	assert.Empty(t, sender.sentIDs(), "queue mode must not send in-process")

	queue.err = errors.New("redis unavailable")
	assert.NotPanics(t, func() { d.Dispatch(context.Background(), jobsFor(3)) })
}

func TestDispatcherQueueModeWithoutQueueFallsBackToAsync(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(notifySettings(config.NotifyQueue), sender, fiveAbstractStore(), nil)

	d.Dispatch(context.Background(), jobsFor(1))
	d.Wait()
	assert.Equal(t, []int64{1}, sender.sentIDs())
}

func TestDispatcherDisabled(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(notifySettings(config.NotifyDisabled), sender, fiveAbstractStore(), nil)

	assert.False(t, d.Enabled())
	assert.Nil(t, d.Dispatch(context.Background(), jobsFor(1)))
	d.Wait()
	assert.Empty(t, sender.sentIDs())
}

func TestDispatcherQueueModeNeedsNoLocalSender(t *testing.T) {
	queue := &recordingQueue{}
	d := NewDispatcher(notifySettings(config.NotifyQueue), nil, fiveAbstractStore(), queue)

	assert.True(t, d.Enabled())
	assert.Nil(t, d.Dispatch(context.Background(), jobsFor(1, 2)))
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, int64(1), queue.jobs[0].AbstractID)
	assert.Equal(t, int64(2), queue.jobs[1].AbstractID)

	withoutQueue := NewDispatcher(notifySettings(config.NotifyQueue), nil, fiveAbstractStore(), nil)
	assert.False(t, withoutQueue.Enabled())
}
