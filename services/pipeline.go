package services

import (
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
)

// Pipeline bundles the status-update service with the resources it owns.
type Pipeline struct {
	Service    *BulkStatusService
	Dispatcher *Dispatcher
	Store      *GormStatusStore

	queueClient *asynq.Client
}

// RedisOpt converts the Redis settings for asynq clients and servers.
func RedisOpt(r config.RedisSettings) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: r.Addr, Password: r.Password, DB: r.DB}
}

// NewPipeline wires store, mailer, dispatcher and service from settings.
// A queue client is only opened when NOTIFY_MODE=queue.
func NewPipeline(db *gorm.DB, s *config.Settings) *Pipeline {
	store := NewGormStatusStore(db)

	var sender StatusEmailSender
	mailer := config.NewMailer(s.SMTP)
	if mailer.Configured() {
		sender = NewMailStatusSender(mailer, s.Conference)
	} else {
		config.Logger.Warn().Msg("SMTP is not configured; status emails are disabled")
	}

	p := &Pipeline{Store: store}
	var queue TaskEnqueuer
	if s.Pipeline.NotifyMode == config.NotifyQueue {
		p.queueClient = asynq.NewClient(RedisOpt(s.Redis))
		queue = NewNotificationQueue(p.queueClient)
	}

	p.Dispatcher = NewDispatcher(s.Pipeline, sender, store, queue)
	p.Service = NewBulkStatusService(store, p.Dispatcher, s.Pipeline, config.DatabaseLabel(s.Database.Driver))
	return p
}

// Close waits for detached deliveries and releases the queue client.
func (p *Pipeline) Close() error {
	p.Dispatcher.Wait()
	if p.queueClient != nil {
		return p.queueClient.Close()
	}
	return nil
}
