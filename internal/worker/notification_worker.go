package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/visahub/crm-service/internal/service"
)

// NotificationWorker drains notification jobs off a buffered channel so
// event handlers never block request handling. Jobs are logged; delivery
// integrations plug in behind the same queue.
type NotificationWorker struct {
	queue  chan service.Notification
	logger *zap.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

// NewNotificationWorker creates a worker with the given queue depth.
func NewNotificationWorker(logger *zap.Logger, queueSize int) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &NotificationWorker{
		queue:  make(chan service.Notification, queueSize),
		logger: logger,
	}
}

// Enqueue adds a job, dropping it when the queue is full. Notifications
// are best-effort and never fail the originating request.
func (w *NotificationWorker) Enqueue(notification service.Notification) {
	select {
	case w.queue <- notification:
	default:
		w.logger.Warn("notification queue full, dropping job",
			zap.String("kind", notification.Kind),
			zap.String("lead_id", notification.LeadID))
	}
}

// Start launches the drain loop. It stops when ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-w.queue:
				w.logger.Info("notification",
					zap.String("kind", job.Kind),
					zap.String("lead_id", job.LeadID),
					zap.String("subject", job.Subject),
					zap.String("body", job.Body))
			}
		}
	}()
}

// Stop waits for the drain loop to exit. Call after cancelling the Start
// context.
func (w *NotificationWorker) Stop() {
	w.once.Do(func() {
		w.wg.Wait()
	})
}
