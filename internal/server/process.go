package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitevoice/fieldreport/internal/async"
	"github.com/sitevoice/fieldreport/internal/common"
)

type processReportRequest struct {
	// TranscriptText, when set, skips audio retrieval and transcription.
	// Used for deterministic testing and replay.
	TranscriptText string `json:"transcriptText"`
}

// processReport is the fire-and-forget trigger: confirm the record exists,
// hand the job to the queue, and acknowledge. Completion is observed by
// polling GET /v1/reports/:id.
func (s *Service) processReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}

	var req processReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	// Existence is checked synchronously so a bad id fails here, before any
	// background work starts.
	rep, err := s.reports.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		s.logger.Error("process trigger load failed", "report_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "process trigger failed"})
		return
	}

	job := async.Job{
		ReportID:           rep.ID,
		TranscriptOverride: req.TranscriptText,
		SubmittedAt:        time.Now().UTC(),
		TraceID:            uuid.New().String(),
	}
	if err := s.queue.Enqueue(c.Request.Context(), job); err != nil {
		if errors.Is(err, async.ErrShuttingDown) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service is shutting down"})
			return
		}
		s.logger.Error("enqueue failed", "report_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed"})
		return
	}

	s.logger.Info("report queued", "report_id", rep.ID, "trace_id", job.TraceID, "has_override", req.TranscriptText != "")
	c.JSON(http.StatusAccepted, gin.H{"id": rep.ID.String(), "queued": true})
}
