package server

import (
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitevoice/fieldreport/constants"
	"github.com/sitevoice/fieldreport/internal/common"
	"github.com/sitevoice/fieldreport/internal/storage"
)

type createReportRequest struct {
	SiteName string `json:"siteName"`
	FileName string `json:"fileName" binding:"required"`
}

type createReportResponse struct {
	ID       string                 `json:"id"`
	Status   constants.ReportStatus `json:"status"`
	AudioKey string                 `json:"audioKey"`
	Upload   *storage.SignedUpload  `json:"upload"`
}

// createReport reserves an audio object key, creates the record in UPLOADING,
// and hands the browser recorder a signed PUT URL. The processing trigger is
// a separate call, made after the upload completes.
func (s *Service) createReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileName is required"})
		return
	}

	ext := constants.NormalizeExt(path.Ext(req.FileName))
	if _, ok := constants.AllowedAudioExtensions[ext]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported audio type: ." + ext})
		return
	}

	key := path.Join("audio", uuid.New().String()+"."+ext)
	rep, err := s.reports.Create(c.Request.Context(), strings.TrimSpace(req.SiteName), key)
	if err != nil {
		s.logger.Error("create report failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create report failed"})
		return
	}

	signed, err := s.signer.SignUpload(c.Request.Context(), key, constants.MimeForAudioKey(key))
	if err != nil {
		s.logger.Error("sign upload failed", "report_id", rep.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign upload failed"})
		return
	}

	c.JSON(http.StatusCreated, createReportResponse{
		ID:       rep.ID.String(),
		Status:   rep.Status,
		AudioKey: rep.AudioKey,
		Upload:   signed,
	})
}

func (s *Service) getReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}
	rep, err := s.reports.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		s.logger.Error("get report failed", "report_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get report failed"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Service) listReports(c *gin.Context) {
	from, ok := parseDateParam(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(c, "to")
	if !ok {
		return
	}
	reports, err := s.reports.List(c.Request.Context(), from, to)
	if err != nil {
		s.logger.Error("list reports failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list reports failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// getSummary serves the canonical summary document verbatim; downstream
// renderers (the PDF converter) consume this byte-for-byte.
func (s *Service) getSummary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}
	rep, err := s.reports.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		s.logger.Error("get summary failed", "report_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get summary failed"})
		return
	}
	if rep.Status != constants.StatusReady {
		c.JSON(http.StatusConflict, gin.H{"error": "report is not ready", "status": rep.Status})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(rep.SummaryText))
}

func parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}
