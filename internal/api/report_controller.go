package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bistro/server/internal/services"
)

// ReportController serves /api/v1/reports.
type ReportController struct {
	reportService *services.ReportService
}

func NewReportController(reportService *services.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

// DailySales reports one business day; without ?date the current one.
// GET /api/v1/reports/daily?date=YYYY-MM-DD
func (rc *ReportController) DailySales(c *gin.Context) {
	date, err := rc.reportService.ParseBusinessDate(c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := rc.reportService.DailySales(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /api/v1/reports/menu-profitability
func (rc *ReportController) MenuProfitability(c *gin.Context) {
	rows, err := rc.reportService.MenuProfitability(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}

// GET /api/v1/reports/low-stock
func (rc *ReportController) LowStock(c *gin.Context) {
	rows, err := rc.reportService.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}
