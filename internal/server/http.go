// Package server assembles the HTTP router and the server lifecycle.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	attendancehandler "rollcall/backend/internal/attendance/handler"
	livehandler "rollcall/backend/internal/live/handler"
	organizerhandler "rollcall/backend/internal/organizer/handler"
	roundhandler "rollcall/backend/internal/round/handler"
	"rollcall/backend/internal/security"
	"rollcall/backend/internal/server/middleware"
	sessionhandler "rollcall/backend/internal/session/handler"
)

// Handlers groups the feature handlers mounted on the router.
type Handlers struct {
	Organizers  *organizerhandler.Handler
	Sessions    *sessionhandler.Handler
	Rounds      *roundhandler.Handler
	Attendances *attendancehandler.Handler
	Live        *livehandler.Handler
}

// NewRouter builds the gin engine with every route mounted. The check-in
// route is public; everything else under /api requires an organizer token.
func NewRouter(env string, db *sql.DB, tokens *security.TokenProvider, h Handlers, log *zap.Logger) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.POST("/auth/register", h.Organizers.Register)
	api.POST("/auth/login", h.Organizers.Login)
	api.POST("/checkin", h.Attendances.CheckIn)

	authed := api.Group("")
	authed.Use(middleware.RequireOrganizer(tokens))

	authed.POST("/sessions", h.Sessions.Create)
	authed.GET("/sessions", h.Sessions.List)
	authed.GET("/sessions/:id", h.Sessions.Get)
	authed.POST("/sessions/:id/close", h.Sessions.Close)
	authed.DELETE("/sessions/:id", h.Sessions.Delete)

	authed.POST("/sessions/:id/rounds", h.Rounds.Create)
	authed.GET("/sessions/:id/rounds", h.Rounds.ListBySession)
	authed.GET("/rounds/:id", h.Rounds.Get)
	authed.DELETE("/rounds/:id", h.Rounds.Delete)

	authed.GET("/rounds/:id/live", h.Live.Stream)
	authed.GET("/rounds/:id/attendances", h.Attendances.ListByRound)
	authed.POST("/rounds/:id/attendances/override", h.Attendances.OverrideStatus)

	return r
}

// requestLogger logs one line per request. The live stream route is skipped:
// its requests are long-lived and logged by the hub instead.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/api/rounds/:id/live" {
			return
		}
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
