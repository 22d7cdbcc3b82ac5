package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duynguyendang/relpat/pkg/service"
)

// Server holds the state for the REST API server.
type Server struct {
	analysis *service.AnalysisService
	router   *gin.Engine
}

// NewServer creates a new Server instance.
func NewServer(analysis *service.AnalysisService) *Server {
	r := gin.Default()
	r.Use(requestID())
	s := &Server{
		analysis: analysis,
		router:   r,
	}
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router, e.g. for an http.Server with graceful shutdown.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.GET("/datasets", s.handleDatasets)
	ds := v1.Group("/datasets/:id")
	ds.GET("/patterns", s.handlePatterns)
	ds.GET("/cardinality", s.handleCardinality)
	ds.GET("/functionality", s.handleFunctionality)
	ds.GET("/counts/relations", s.handleRelationCounts)
	ds.GET("/counts/entities", s.handleEntityCounts)
	ds.GET("/counts/cooccurrence", s.handleCoOccurrence)
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}
