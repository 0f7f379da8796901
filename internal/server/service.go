package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/sitevoice/fieldreport/internal/async"
	"github.com/sitevoice/fieldreport/internal/export"
	"github.com/sitevoice/fieldreport/internal/repository"
	"github.com/sitevoice/fieldreport/internal/storage"
)

// Service wires the HTTP surface: record creation with signed uploads,
// the fire-and-forget processing trigger, status polling, and export.
type Service struct {
	reports  repository.ReportRepository
	signer   storage.UploadSigner
	queue    async.Queue
	exporter *export.Service
	logger   *slog.Logger
}

func NewService(
	reports repository.ReportRepository,
	signer storage.UploadSigner,
	queue async.Queue,
	exporter *export.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reports:  reports,
		signer:   signer,
		queue:    queue,
		exporter: exporter,
		logger:   logger,
	}
}

// Routes registers all handlers on the given engine.
func (s *Service) Routes(r *gin.Engine) {
	v1 := r.Group("/v1")
	{
		v1.POST("/reports", s.createReport)
		v1.GET("/reports", s.listReports)
		v1.GET("/reports/:id", s.getReport)
		v1.GET("/reports/:id/summary", s.getSummary)
		v1.POST("/reports/:id/process", s.processReport)
		v1.GET("/reports/export.xlsx", s.exportReports)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
