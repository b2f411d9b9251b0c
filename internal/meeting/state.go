package meeting

import (
	"errors"

	"clinicops/internal/model"
)

// ErrInvalidTransition rejects status changes the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid meeting status transition")

var transitions = map[model.MeetingStatus][]model.MeetingStatus{
	model.MeetingPending:    {model.MeetingInProgress, model.MeetingCompleted},
	model.MeetingInProgress: {model.MeetingCompleted},
}

// CanTransition reports whether a request may move from one status to another.
// Completed is terminal and no transition goes backward.
func CanTransition(from, to model.MeetingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
