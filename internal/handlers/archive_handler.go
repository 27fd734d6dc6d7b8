package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"truthlens/internal/services"
	"truthlens/internal/utils"
)

type ArchiveHandler struct {
	archiveService services.ArchiveServiceInterface
}

func NewArchiveHandler(archiveService services.ArchiveServiceInterface) *ArchiveHandler {
	return &ArchiveHandler{
		archiveService: archiveService,
	}
}

// ListReports returns archived reports, newest first
func (h *ArchiveHandler) ListReports(c *gin.Context) {
	page, perPage := utils.NormalizePagination(
		utils.GetQueryParamInt(c, "page", 1),
		utils.GetQueryParamInt(c, "per_page", utils.DefaultPerPage),
	)

	reports, total, err := h.archiveService.ListReports(page, perPage)
	if err != nil {
		writeServiceError(c, err, "list_archived_reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports":     reports,
		"total":       total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": int(math.Ceil(float64(total) / float64(perPage))),
	})
}

func (h *ArchiveHandler) GetReport(c *gin.Context) {
	id, ok := historyIDParam(c)
	if !ok {
		return
	}
	report, err := h.archiveService.GetReport(id)
	if err != nil {
		writeServiceError(c, err, "get_archived_report")
		return
	}
	c.JSON(http.StatusOK, report)
}
