package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicops/internal/meeting"
	"clinicops/internal/model"
)

// ---------- Meeting queue ----------

type createMeetingRequest struct {
	StudentID      string   `json:"student_id"`
	Clinic         string   `json:"clinic"`
	ClientID       string   `json:"client_id"`
	Subject        string   `json:"subject" binding:"required,max=200"`
	Message        string   `json:"message" binding:"max=4000"`
	PreferredDates []string `json:"preferred_dates" binding:"max=10"`
}

func (h *Handler) CreateMeeting(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.svc.Meetings.Enqueue(c.Request.Context(), caller(c), meeting.EnqueueInput{
		StudentID:      req.StudentID,
		Clinic:         req.Clinic,
		ClientID:       req.ClientID,
		Subject:        req.Subject,
		Message:        req.Message,
		PreferredDates: req.PreferredDates,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// ListMeetings serves both projections: forQueue=true is oldest first,
// otherwise most recent first. Students only see their own requests.
func (h *Handler) ListMeetings(c *gin.Context) {
	f := model.MeetingFilter{
		StudentID: c.Query("studentId"),
		Clinic:    c.Query("clinic"),
		Status:    model.MeetingStatus(c.Query("status")),
		ClientID:  c.Query("clientId"),
	}
	if f.Status != "" && !f.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + string(f.Status), "code": "invalid_input"})
		return
	}
	if cl := caller(c); !cl.Staff() {
		f.StudentID = cl.ID
	}
	list, err := h.svc.Meetings.List(c.Request.Context(), f, c.Query("forQueue") == "true")
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetMeeting(c *gin.Context) {
	m, err := h.svc.Meetings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if cl := caller(c); !cl.Staff() && m.StudentID != cl.ID {
		h.writeError(c, model.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, m)
}

type advanceMeetingRequest struct {
	Status       string  `json:"status" binding:"required,meeting_status"`
	Notes        *string `json:"notes"`
	DebriefNotes *string `json:"debrief_notes"`
}

func (h *Handler) AdvanceMeeting(c *gin.Context) {
	var req advanceMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.svc.Meetings.Advance(c.Request.Context(), caller(c), c.Param("id"), meeting.AdvanceInput{
		Status:       model.MeetingStatus(req.Status),
		Notes:        req.Notes,
		DebriefNotes: req.DebriefNotes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
