package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ---------- Progress ----------

func (h *Handler) Schedule(c *gin.Context) {
	s, err := h.svc.Progress.Schedule(c.Request.Context(), c.Query("semesterId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) StudentProgress(c *gin.Context) {
	p, err := h.svc.Progress.StudentProgress(c.Request.Context(), caller(c), c.Param("id"), c.Query("semesterId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ClinicProgress(c *gin.Context) {
	p, err := h.svc.Progress.ClinicProgress(c.Request.Context(), caller(c), c.Query("clinic"), c.Query("semesterId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
