package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicops/internal/attendance"
	"clinicops/internal/model"
)

// ---------- Attendance ----------

type submitAttendanceRequest struct {
	StudentID  string `json:"student_id"`
	SemesterID string `json:"semester_id" binding:"required"`
	WeekNumber int    `json:"week_number" binding:"required,min=1"`
	Password   string `json:"password" binding:"required"`
}

// SubmitAttendance records the caller as present. Staff may submit on a
// student's behalf.
func (h *Handler) SubmitAttendance(c *gin.Context) {
	var req submitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cl := caller(c)
	studentID := req.StudentID
	if !cl.Staff() {
		studentID = cl.ID
	}

	rec, err := h.svc.Attendance.Submit(c.Request.Context(), attendance.SubmitInput{
		StudentID:  studentID,
		SemesterID: req.SemesterID,
		WeekNumber: req.WeekNumber,
		Password:   req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.svc.Progress.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListAttendance(c *gin.Context) {
	week, err := optionalInt(c, "week")
	if err != nil {
		badRequest(c, err)
		return
	}
	f := model.AttendanceFilter{StudentID: c.Query("studentId"), SemesterID: c.Query("semesterId"), WeekNumber: week}
	if cl := caller(c); !cl.Staff() {
		f.StudentID = cl.ID
	}
	records, err := h.svc.Attendance.Records(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// ---------- Attendance passwords ----------

type setPasswordRequest struct {
	SemesterID string `json:"semester_id" binding:"required"`
	WeekNumber int    `json:"week_number" binding:"required,min=1"`
	Password   string `json:"password" binding:"required"`
	WeekStart  string `json:"week_start" binding:"omitempty,datetime=2006-01-02"`
	WeekEnd    string `json:"week_end" binding:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) SetPassword(c *gin.Context) {
	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, err := h.parseDate(req.WeekStart)
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := h.parseDate(req.WeekEnd)
	if err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.svc.Attendance.SetPassword(c.Request.Context(), caller(c), attendance.PasswordInput{
		SemesterID: req.SemesterID,
		WeekNumber: req.WeekNumber,
		Password:   req.Password,
		WeekStart:  start,
		WeekEnd:    end,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPasswords(c *gin.Context) {
	week, err := optionalInt(c, "week")
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.Attendance.ListPasswords(c.Request.Context(), caller(c), c.Query("semesterId"), week)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) DeletePassword(c *gin.Context) {
	if err := h.svc.Attendance.DeletePassword(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type openAttendanceRequest struct {
	SemesterID string `json:"semester_id" binding:"required"`
	WeekNumber int    `json:"week_number" binding:"required,min=1"`
}

// OpenAttendance announces the week's check-in to every student.
func (h *Handler) OpenAttendance(c *gin.Context) {
	var req openAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	n, err := h.svc.Attendance.OpenAttendance(c.Request.Context(), caller(c), req.SemesterID, req.WeekNumber)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, n)
}
