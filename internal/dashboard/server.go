package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rdxflow/config"
	"rdxflow/internal/ledger"
	"rdxflow/internal/metrics"
	"rdxflow/internal/models"
	"rdxflow/internal/pipeline"
	"rdxflow/internal/pipeline/reconciler"
	"rdxflow/logger"
)

// Server hosts the JSON API the table/chart front end reads from. It is a
// presentation boundary only: every number it serves was computed by the
// pipeline, and the filter query params map straight onto reconciler range
// filters.
type Server struct {
	cfg           config.DashboardConfig
	log           *logger.Log
	fill          reconciler.FillPolicy
	results       *resultStore
	metricStore   *metricStore
	logStore      *logStore
	metricHandler metrics.HandlerID
	history       ledger.Store
	httpServer    *http.Server
}

// NewServer constructs a dashboard server when the dashboard feature is
// enabled. When it is disabled the returned server is nil and every method
// on it is a no-op.
func NewServer(cfg config.DashboardConfig, fill reconciler.FillPolicy, history ledger.Store, log *logger.Log) *Server {
	if !cfg.Enabled {
		return nil
	}

	if !strings.Contains(cfg.Address, ":") {
		cfg.Address = ":" + cfg.Address
	}

	metricStore := newMetricStore(cfg.LogHistory)
	handlerID := metrics.RegisterHandler(metricStore.handle)

	logStore := newLogStore(cfg.LogHistory)
	log.AddHook(logStore)

	return &Server{
		cfg:           cfg,
		log:           log,
		fill:          fill,
		results:       &resultStore{},
		metricStore:   metricStore,
		logStore:      logStore,
		metricHandler: handlerID,
		history:       history,
	}
}

// Publish makes a finished pipeline result the one the API serves.
func (s *Server) Publish(result *pipeline.Result) {
	if s == nil {
		return
	}
	s.results.set(result)
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}
	defer s.cleanup()

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: router,
	}

	s.log.WithComponent("dashboard").WithFields(logger.Fields{"address": s.cfg.Address}).Info("dashboard listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	api := router.Group("/api")
	{
		api.GET("/rows", s.handleRows)
		api.GET("/summaries", s.handleSummaries)
		api.GET("/warnings", s.handleWarnings)
		api.GET("/history/:date", s.handleHistory)
		api.GET("/logs", s.handleLogs)
		api.GET("/metrics", s.handleMetrics)
	}
	return router
}

func (s *Server) cleanup() {
	metrics.UnregisterHandler(s.metricHandler)
	s.logStore.close()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleRows serves the latest reconciled batch, optionally narrowed by
// repeated filter params of the form ?filter=field,min,max. The query
// filters compose with AND on top of the run's configured filters.
func (s *Server) handleRows(c *gin.Context) {
	result := s.results.get()
	if result == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no pipeline result available yet"})
		return
	}

	filters, err := parseFilters(c.QueryArray("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows := result.Rows
	if len(filters) > 0 {
		rows, _ = reconciler.ApplyFilters(rows, filters, s.fill)
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": result.RunID,
		"count":  len(rows),
		"rows":   rows,
	})
}

func (s *Server) handleSummaries(c *gin.Context) {
	result := s.results.get()
	if result == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no pipeline result available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": result.RunID, "summaries": result.Summaries})
}

func (s *Server) handleWarnings(c *gin.Context) {
	result := s.results.get()
	if result == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no pipeline result available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": result.RunID, "warnings": result.Warnings})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no ledger configured"})
		return
	}
	date := c.Param("date")
	summaries, err := s.history.ReadDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trade_date": date, "summaries": summaries})
}

func (s *Server) handleLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot()})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": s.metricStore.snapshot()})
}

// parseFilters converts "field,min,max" query values into range filters.
func parseFilters(raw []string) ([]reconciler.RangeFilter, error) {
	filters := make([]reconciler.RangeFilter, 0, len(raw))
	for _, item := range raw {
		parts := strings.Split(item, ",")
		if len(parts) != 3 {
			return nil, errors.New("filter must be field,min,max")
		}
		field := strings.TrimSpace(parts[0])
		if _, ok := (models.ReconciledRow{}).Field(field); !ok {
			return nil, errors.New("unknown filter field " + strconv.Quote(field))
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, errors.New("invalid min in filter " + strconv.Quote(item))
		}
		max, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, errors.New("invalid max in filter " + strconv.Quote(item))
		}
		filters = append(filters, reconciler.RangeFilter{Field: field, Min: min, Max: max})
	}
	return filters, nil
}
