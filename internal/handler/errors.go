package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicops/internal/attendance"
	"clinicops/internal/debrief"
	"clinicops/internal/logging"
	"clinicops/internal/meeting"
	"clinicops/internal/model"
	"clinicops/internal/progress"
	"clinicops/internal/store"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Each rejection gets its own code so clients can tell the user what to do.
var errorMappings = []errorMapping{
	{attendance.ErrPasswordNotSet, http.StatusUnprocessableEntity, "password_not_set"},
	{attendance.ErrInvalidPassword, http.StatusForbidden, "invalid_password"},
	{attendance.ErrAlreadySubmitted, http.StatusConflict, "already_submitted"},
	{meeting.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{store.ErrConflict, http.StatusConflict, "conflict"},
	{model.ErrForbidden, http.StatusForbidden, "forbidden"},
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
	{attendance.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{meeting.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{debrief.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{progress.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{store.ErrTransient, http.StatusServiceUnavailable, "unavailable"},
}

func (h *Handler) writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := err.Error()
			if m.status == http.StatusServiceUnavailable {
				msg = "service temporarily unavailable, try again"
			}
			c.JSON(m.status, gin.H{"error": msg, "code": m.code})
			return
		}
	}
	logging.FromContext(c.Request.Context(), h.log).Error("unhandled error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
}
