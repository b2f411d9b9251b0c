package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicops/internal/debrief"
	"clinicops/internal/model"
)

// ---------- Debriefs ----------

type submitDebriefRequest struct {
	StudentID    string  `json:"student_id"`
	SemesterID   string  `json:"semester_id"`
	WeekEnding   string  `json:"week_ending" binding:"required,datetime=2006-01-02"`
	HoursWorked  float64 `json:"hours_worked" binding:"gte=0"`
	WorkSummary  string  `json:"work_summary"`
	Clinic       string  `json:"clinic"`
	ClientID     string  `json:"client_id"`
	ClientName   string  `json:"client_name"`
	Questions    string  `json:"questions"`
	QuestionType string  `json:"question_type" binding:"omitempty,oneof=clinic client"`
}

func (h *Handler) SubmitDebrief(c *gin.Context) {
	var req submitDebriefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	weekEnding, err := h.parseDate(req.WeekEnding)
	if err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.svc.Debriefs.Submit(c.Request.Context(), caller(c), debrief.SubmitInput{
		StudentID:    req.StudentID,
		SemesterID:   req.SemesterID,
		WeekEnding:   *weekEnding,
		HoursWorked:  req.HoursWorked,
		WorkSummary:  req.WorkSummary,
		Clinic:       req.Clinic,
		ClientID:     req.ClientID,
		ClientName:   req.ClientName,
		Questions:    req.Questions,
		QuestionType: req.QuestionType,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.svc.Progress.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDebriefs(c *gin.Context) {
	weekEnding, err := h.parseDate(c.Query("weekEnding"))
	if err != nil {
		badRequest(c, err)
		return
	}
	f := model.DebriefFilter{
		StudentID:  c.Query("studentId"),
		SemesterID: c.Query("semesterId"),
		Clinic:     c.Query("clinic"),
		WeekEnding: weekEnding,
	}
	if cl := caller(c); !cl.Staff() {
		f.StudentID = cl.ID
	}
	list, err := h.svc.Debriefs.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
