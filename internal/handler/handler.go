// Package handler exposes the coordination services over HTTP with gin.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clinicops/internal/attendance"
	"clinicops/internal/auth"
	"clinicops/internal/debrief"
	"clinicops/internal/httpmiddleware"
	"clinicops/internal/meeting"
	"clinicops/internal/metrics"
	"clinicops/internal/model"
	"clinicops/internal/notify"
	"clinicops/internal/progress"
)

// Services are the domain services behind the routes.
type Services struct {
	Attendance    *attendance.Service
	Meetings      *meeting.Service
	Debriefs      *debrief.Service
	Progress      *progress.Service
	Notifications *notify.Service
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Options configure the router.
type Options struct {
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	// DevTokens enables POST /v1/dev/token.
	DevTokens bool
	// Location interprets date-only request fields.
	Location  *time.Location
	AccessLog bool
	// CORSOrigins enables CORS for these origins; empty leaves it off.
	CORSOrigins []string
	Limiter     httpmiddleware.Limiter
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Checks      map[string]HealthCheck
	Log         *slog.Logger
}

type Handler struct {
	svc  Services
	opts Options
	log  *slog.Logger
}

func New(svc Services, opts Options) *Handler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	registerValidators()
	return &Handler{svc: svc, opts: opts, log: opts.Log}
}

// Router builds the gin engine with every route mounted.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.log))
	if h.opts.AccessLog {
		r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			SkipPaths: []string{"/healthz", "/metrics"},
		}))
	}
	if len(h.opts.CORSOrigins) > 0 {
		r.Use(corsMiddleware(h.opts.CORSOrigins))
	}
	r.Use(securityHeaders())
	r.Use(h.opts.Metrics.GinMiddleware())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{})))
	if h.opts.DevTokens {
		r.POST("/v1/dev/token", h.DevToken)
	}

	v1 := r.Group("/v1", auth.Bearer(h.opts.JWTSigningKey, h.opts.JWTIssuer))
	if h.opts.Limiter != nil {
		v1.Use(httpmiddleware.Middleware(h.opts.Limiter, h.log))
	}
	staff := auth.RequireRole(model.RoleDirector, model.RoleAdmin)

	v1.GET("/schedule", h.Schedule)
	v1.GET("/progress/students/:id", h.StudentProgress)
	v1.GET("/progress/clinics", staff, h.ClinicProgress)

	v1.POST("/attendance", h.SubmitAttendance)
	v1.GET("/attendance", h.ListAttendance)
	v1.GET("/attendance/passwords", staff, h.ListPasswords)
	v1.POST("/attendance/passwords", staff, h.SetPassword)
	v1.DELETE("/attendance/passwords/:id", staff, h.DeletePassword)
	v1.POST("/attendance/open", staff, h.OpenAttendance)

	v1.GET("/meetings", h.ListMeetings)
	v1.POST("/meetings", h.CreateMeeting)
	v1.GET("/meetings/:id", h.GetMeeting)
	v1.PATCH("/meetings/:id", staff, h.AdvanceMeeting)

	v1.POST("/debriefs", h.SubmitDebrief)
	v1.GET("/debriefs", h.ListDebriefs)

	v1.GET("/notifications", h.ListNotifications)
	v1.GET("/notifications/unread-count", staff, h.UnreadCount)
	v1.PATCH("/notifications/:id/read", h.MarkNotificationRead)
	return r
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.opts.Checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Dev tokens ----------

type devTokenRequest struct {
	Subject string `json:"sub" binding:"required"`
	Role    string `json:"role" binding:"required,oneof=student director admin"`
	Name    string `json:"name"`
}

// DevToken issues a token for any identity; it is only mounted in dev.
func (h *Handler) DevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tok, err := auth.Issue(model.Caller{ID: req.Subject, Name: req.Name, Role: req.Role}, h.opts.JWTIssuer, h.opts.JWTSigningKey, h.opts.AccessTTL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tok)
}

// caller returns the authenticated identity; Bearer guarantees one on /v1.
func caller(c *gin.Context) model.Caller {
	cl, _ := auth.CallerFrom(c)
	return cl
}
