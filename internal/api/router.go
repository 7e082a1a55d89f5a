// internal/api/router.go
// Package api exposes the admission engine over HTTP.
package api

import (
	"time"

	"admission-engine/internal/common/logger"
	"admission-engine/internal/common/observability"
	"admission-engine/internal/engine/admission"
	"admission-engine/internal/engine/eligibility"
	"admission-engine/internal/engine/fanout"
	"admission-engine/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// fanoutTimeout bounds a background scan kicked off by a posting creation.
const fanoutTimeout = 5 * time.Minute

type Server struct {
	gate    *eligibility.Gate
	arbiter *admission.Arbiter
	fanout  *fanout.Fanout
	stores  store.Stores
	obs     *observability.Observability
	logger  logger.Logger
}

func NewServer(gate *eligibility.Gate, arbiter *admission.Arbiter, fan *fanout.Fanout, stores store.Stores, obs *observability.Observability, log logger.Logger) *Server {
	return &Server{
		gate:    gate,
		arbiter: arbiter,
		fanout:  fan,
		stores:  stores,
		obs:     obs,
		logger:  log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/applications", s.submitApplication)
		v1.GET("/applications", s.listApplications)
		v1.POST("/applications/:id/decision", s.decideApplication)

		v1.POST("/postings", s.createPosting)
		v1.GET("/postings", s.listPostings)
		v1.GET("/postings/:id", s.getPosting)

		v1.GET("/match", s.previewMatch)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := "success"
		if c.Writer.Status() >= 500 {
			status = "error"
		}
		s.obs.RecordRequest(c.Request.Context(), status)
		s.obs.RecordDuration(c.Request.Context(), time.Since(start), status)

		s.logger.Info("request handled", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
