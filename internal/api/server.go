package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"journey-board/internal/app/analyzer"
	"journey-board/internal/common/config"
	"journey-board/internal/common/logger"
	"journey-board/internal/journey"
	"journey-board/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer classifies deals fetched from the CRM or supplied inline.
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (*journey.Journey, error)
	ClassifyRecords(ctx context.Context, deal models.CRMObject, contact *models.CRMObject) journey.Journey
}

// CRM is the listing side of the CRM client used by the board.
type CRM interface {
	ListDeals(ctx context.Context, limit int, after string) (*models.Page, error)
	ListContacts(ctx context.Context, limit int, after string) (*models.Page, error)
	TestConnection(ctx context.Context) error
}

// Pinger reports cache health. It is nil when the cache is disabled.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Analyzer Analyzer
	CRM      CRM
	Cache    Pinger
	Logger   logger.Logger
}

type Server struct {
	cfg       config.ServerConfig
	pageLimit int
	deps      Dependencies
	log       logger.Logger
	router    *gin.Engine
	http      *http.Server
}

func NewServer(cfg config.ServerConfig, pageLimit int, deps Dependencies) *Server {
	if pageLimit <= 0 || pageLimit > 100 {
		pageLimit = 100
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	s := &Server{
		cfg:       cfg,
		pageLimit: pageLimit,
		deps:      deps,
		log:       log.Named("http"),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), requestLogger(s.log), httpMetrics(), recovery(s.log), cors(s.cfg.AllowedOrigins))

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/status", s.status)
		api.GET("/journey/stages", s.stages)
		api.POST("/journey/classify", s.classify)
		api.GET("/journey/:dealId", s.getJourney)
		api.GET("/deals", s.listDeals)
		api.GET("/contacts", s.listContacts)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: "route not found"})
	})
	return r
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", map[string]interface{}{"address": s.cfg.Address})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	timeout := config.GetDuration(s.cfg.ShutdownTimeout)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
