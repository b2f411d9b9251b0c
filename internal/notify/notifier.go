package notify

import (
	"context"
	"log/slog"

	"clinicops/internal/clinic"
	"clinicops/internal/model"
)

// DirectoryLoader supplies the clinic directory for recipient resolution.
type DirectoryLoader interface {
	Load(ctx context.Context) (*clinic.Directory, error)
}

// Notifier resolves recipients and hands rows to the outbox.
type Notifier struct {
	dirs   DirectoryLoader
	outbox *Outbox
	log    *slog.Logger
}

// NewNotifier wires fan-out to an outbox.
func NewNotifier(dirs DirectoryLoader, outbox *Outbox, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{dirs: dirs, outbox: outbox, log: log}
}

// Directors fans ev out to directors and returns the rows attempted. When the
// directory cannot be loaded the event still produces a broadcast row.
func (n *Notifier) Directors(ctx context.Context, ev Event) []model.Notification {
	dir, err := n.dirs.Load(ctx)
	if err != nil {
		n.log.Warn("directory unavailable, broadcasting", "type", ev.Type, "error", err)
		dir = nil
	}
	rows := Build(dir, ev)
	n.outbox.Emit(ctx, rows...)
	return rows
}

// Student addresses one row to a student.
func (n *Notifier) Student(ctx context.Context, studentID string, row model.Notification) model.Notification {
	row.StudentID = studentID
	row.DirectorID = ""
	row.TargetAudience = model.AudienceStudents
	n.outbox.Emit(ctx, row)
	return row
}

// Broadcast emits one unaddressed row for an audience.
func (n *Notifier) Broadcast(ctx context.Context, audience string, row model.Notification) model.Notification {
	row.StudentID = ""
	row.DirectorID = ""
	row.TargetAudience = audience
	n.outbox.Emit(ctx, row)
	return row
}
