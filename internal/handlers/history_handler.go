package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"truthlens/internal/services"
	"truthlens/internal/utils"
)

type HistoryHandler struct {
	analysisService services.AnalysisServiceInterface
}

func NewHistoryHandler(analysisService services.AnalysisServiceInterface) *HistoryHandler {
	return &HistoryHandler{
		analysisService: analysisService,
	}
}

func (h *HistoryHandler) ListHistory(c *gin.Context) {
	items := h.analysisService.ListHistory()
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

func (h *HistoryHandler) ClearHistory(c *gin.Context) {
	if err := h.analysisService.ClearHistory(utils.GetCorrelationID(c)); err != nil {
		writeServiceError(c, err, "clear_history")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HistoryHandler) GetHistoryItem(c *gin.Context) {
	id, ok := historyIDParam(c)
	if !ok {
		return
	}
	item, err := h.analysisService.GetHistoryItem(id)
	if err != nil {
		writeServiceError(c, err, "get_history_item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// SelectHistoryItem marks an entry for replay and shows its stored result
func (h *HistoryHandler) SelectHistoryItem(c *gin.Context) {
	id, ok := historyIDParam(c)
	if !ok {
		return
	}
	item, err := h.analysisService.Replay(id, utils.GetCorrelationID(c))
	if err != nil {
		writeServiceError(c, err, "replay_history_item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// ConsumeSelection returns the selected entry once, then clears the slot
func (h *HistoryHandler) ConsumeSelection(c *gin.Context) {
	item, err := h.analysisService.ConsumeSelection()
	if err != nil {
		writeServiceError(c, err, "consume_selection")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DownloadReport serves the plain-text report as an attachment
func (h *HistoryHandler) DownloadReport(c *gin.Context) {
	id, ok := historyIDParam(c)
	if !ok {
		return
	}
	report, err := h.analysisService.Report(id)
	if err != nil {
		writeServiceError(c, err, "download_report")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	c.Header("X-Share-Text", report.ShareText)
	c.String(http.StatusOK, report.Text)
}
