package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"clinicops/internal/metrics"
	"clinicops/internal/model"
	"clinicops/internal/queue"
)

// Sink accepts notification rows.
type Sink interface {
	Emit(ctx context.Context, n model.Notification) error
}

// Inserter is the store capability a StoreSink writes through.
type Inserter interface {
	InsertNotification(ctx context.Context, n model.Notification) (model.Notification, error)
}

// StoreSink writes notifications to the store dashboards poll.
type StoreSink struct {
	Store Inserter
}

func (s StoreSink) Emit(ctx context.Context, n model.Notification) error {
	_, err := s.Store.InsertNotification(ctx, n)
	return err
}

// Outbox is the secondary-effect step of every mutating action: it attempts
// each row, logs and counts failures, hands them to the retry queue, and
// never reports an error to its caller.
type Outbox struct {
	sink    Sink
	retry   queue.Queue
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewOutbox builds an outbox. retry and m may be nil.
func NewOutbox(sink Sink, retry queue.Queue, log *slog.Logger, m *metrics.Metrics, now func() time.Time) *Outbox {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Outbox{sink: sink, retry: retry, log: log, metrics: m, now: now}
}

// Emit writes rows and returns how many were written. Rows without a
// timestamp are stamped with the outbox clock. Cancellation of ctx does not
// abort the writes.
func (o *Outbox) Emit(ctx context.Context, rows ...model.Notification) int {
	ctx = context.WithoutCancel(ctx)
	written := 0
	for _, n := range rows {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = o.now()
		}
		if err := o.sink.Emit(ctx, n); err != nil {
			o.metrics.Notification(n.Type, "failed")
			o.log.Warn("notification emit failed",
				"type", n.Type, "director_id", n.DirectorID, "student_id", n.StudentID,
				"related_id", n.RelatedID, "error", err)
			o.postpone(ctx, n)
			continue
		}
		o.metrics.Notification(n.Type, "written")
		written++
	}
	return written
}

func (o *Outbox) postpone(ctx context.Context, n model.Notification) {
	if o.retry == nil {
		return
	}
	body, err := json.Marshal(n)
	if err != nil {
		o.log.Error("notification retry encode failed", "error", err)
		return
	}
	msg := queue.Message{Type: queue.TypeNotificationRetry, Body: body, Attempts: 1}
	if err := o.retry.Publish(ctx, msg); err != nil {
		o.log.Error("notification retry enqueue failed", "type", n.Type, "error", err)
		return
	}
	o.metrics.Notification(n.Type, "deferred")
}
