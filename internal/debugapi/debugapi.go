// Package debugapi implements the loopback debug surface: a small HTTP
// API exposing discovered participants, matched endpoints and recent
// trace events, modeled on golib's router/status use of gin as the
// process's HTTP engine — narrowed here to a handful of read-only JSON
// routes instead of golib's full middleware/auth stack, since this
// surface is loopback-only diagnostic tooling, not a management API.
package debugapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tdds/tdds-core/internal/diag"
	"github.com/tdds/tdds-core/internal/discovery"
	"github.com/tdds/tdds-core/internal/trace"
	"github.com/tdds/tdds-core/pkg/guid"
)

// Server is the gin engine backing the debug surface. It is always bound
// to loopback by the caller (cmd/tddsd); this package never chooses the
// listen address.
type Server struct {
	engine *gin.Engine
}

// New builds the debug API's route table. trace may be nil, disabling the
// /trace endpoints with a 503 rather than panicking.
func New(eng *discovery.Engine, diagReg *diag.Registry, tr *trace.Sink) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	if diagReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(diagReg.Gatherer(), promhttp.HandlerOpts{})))
	}

	r.GET("/participants", func(c *gin.Context) {
		type participant struct {
			Prefix string `json:"prefix"`
		}
		var out []participant
		eng.Peers.Range(func(prefix guid.GuidPrefix, _ *discovery.DiscoveredParticipant) bool {
			out = append(out, participant{Prefix: prefix.String()})
			return true
		})
		c.JSON(http.StatusOK, out)
	})

	r.GET("/trace/:kind", func(c *gin.Context) {
		if tr == nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		events, err := tr.Recent(c.Param("kind"), 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, events)
	})

	return &Server{engine: r}
}

func (s *Server) Handler() http.Handler { return s.engine }
