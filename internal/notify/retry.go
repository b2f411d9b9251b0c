package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"clinicops/internal/model"
	"clinicops/internal/queue"
)

const requeueTimeout = 5 * time.Second

// Retrier drains the retry queue and re-emits notifications, giving up after
// MaxAttempts.
type Retrier struct {
	Sink        Sink
	Queue       queue.Queue
	MaxAttempts int
	Delay       time.Duration
	Log         *slog.Logger
}

// Run blocks until ctx is done or the queue closes.
func (r *Retrier) Run(ctx context.Context) error {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 5
	}
	if r.Log == nil {
		r.Log = slog.Default()
	}
	msgs, err := r.Queue.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range msgs {
		if msg.Type != queue.TypeNotificationRetry {
			r.Log.Warn("skipping unknown message", "type", msg.Type)
			continue
		}
		r.handle(ctx, msg)
	}
	return ctx.Err()
}

func (r *Retrier) handle(ctx context.Context, msg queue.Message) {
	var n model.Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		r.Log.Error("dropping undecodable notification", "error", err)
		return
	}
	err := r.Sink.Emit(ctx, n)
	if err == nil {
		r.Log.Info("notification delivered on retry", "type", n.Type, "attempts", msg.Attempts+1)
		return
	}
	if msg.Attempts+1 >= r.MaxAttempts {
		r.Log.Error("notification dropped after retries",
			"type", n.Type, "related_id", n.RelatedID, "attempts", msg.Attempts+1, "error", err)
		return
	}
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
		}
	}
	msg.Attempts++
	// The message is already off the queue; on shutdown it goes back
	// rather than being lost.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()
	if err := r.Queue.Publish(pubCtx, msg); err != nil {
		r.Log.Error("notification requeue failed", "type", n.Type, "error", err)
	}
}
