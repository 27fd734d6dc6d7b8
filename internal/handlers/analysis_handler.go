package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"truthlens/internal/logger"
	"truthlens/internal/services"
	"truthlens/internal/utils"
)

const streamHeartbeat = 15 * time.Second

type AnalysisHandler struct {
	analysisService services.AnalysisServiceInterface
}

func NewAnalysisHandler(analysisService services.AnalysisServiceInterface) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// SubmitRequest is the body of POST /api/analyses
type SubmitRequest struct {
	Query string `json:"query"`
}

// SubmitAnalysis starts analyzing a query
func (h *AnalysisHandler) SubmitAnalysis(c *gin.Context) {
	correlationID := utils.GetCorrelationID(c)

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.WriteError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON with a query field")
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"query_length":   len(req.Query),
		"client_ip":      c.ClientIP(),
	}).Info("Analysis request received")

	response, err := h.analysisService.Submit(req.Query, correlationID)
	if err != nil {
		writeServiceError(c, err, "submit_analysis")
		return
	}

	c.JSON(http.StatusAccepted, response)
}

// GetCurrent returns the live analysis state
func (h *AnalysisHandler) GetCurrent(c *gin.Context) {
	c.JSON(http.StatusOK, h.analysisService.Current())
}

// CancelCurrent abandons the running analysis
func (h *AnalysisHandler) CancelCurrent(c *gin.Context) {
	h.analysisService.Cancel(utils.GetCorrelationID(c))
	c.JSON(http.StatusOK, h.analysisService.Current())
}

// StreamCurrent pushes a snapshot event on every stage transition until the client leaves
func (h *AnalysisHandler) StreamCurrent(c *gin.Context) {
	correlationID := utils.GetCorrelationID(c)
	snapshots, unsubscribe := h.analysisService.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := logger.WithCorrelationID(correlationID)
	log.Debug("Analysis stream opened")
	defer log.Debug("Analysis stream closed")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			c.SSEvent("snapshot", snapshot)
			c.Writer.Flush()
		}
	}
}
