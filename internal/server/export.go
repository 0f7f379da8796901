package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// exportReports serves an XLSX workbook of reports in the requested date
// window.
func (s *Service) exportReports(c *gin.Context) {
	from, ok := parseDateParam(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(c, "to")
	if !ok {
		return
	}

	data, err := s.exporter.ExportReportsXLSX(c.Request.Context(), from, to)
	if err != nil {
		s.logger.Error("export failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("reports-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
