package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"truthlens/internal/logger"
	"truthlens/internal/services"
	"truthlens/internal/utils"
)

// writeServiceError maps service errors onto status codes and the error envelope
func writeServiceError(c *gin.Context, err error, operation string) {
	correlationID := utils.GetCorrelationID(c)

	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, utils.ErrInvalidQuery):
		status, code = http.StatusBadRequest, "INVALID_QUERY"
	case errors.Is(err, services.ErrHistoryItemNotFound):
		status, code = http.StatusNotFound, "HISTORY_ITEM_NOT_FOUND"
	case errors.Is(err, services.ErrNoSelection):
		status, code = http.StatusNotFound, "NO_SELECTION"
	case errors.Is(err, services.ErrNothingToReplay):
		status, code = http.StatusConflict, "RESULT_NOT_READY"
	case errors.Is(err, services.ErrAnalysisInProgress):
		status, code = http.StatusConflict, "ANALYSIS_IN_PROGRESS"
	case errors.Is(err, services.ErrReportNotFound):
		status, code = http.StatusNotFound, "REPORT_NOT_FOUND"
	}

	if status >= http.StatusInternalServerError {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation":   operation,
			"error_code":  code,
			"status_code": status,
		})
	} else {
		logger.WithCorrelationID(correlationID).WithFields(map[string]interface{}{
			"operation":   operation,
			"error_code":  code,
			"status_code": status,
		}).Info(err.Error())
	}

	utils.WriteError(c, status, code, err.Error())
}

// historyIDParam validates the :id path parameter, writing a 400 when it is malformed
func historyIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := utils.ValidateAndParseUUID(id, "history ID"); err != nil {
		utils.WriteError(c, http.StatusBadRequest, "INVALID_HISTORY_ID", err.Error())
		return "", false
	}
	return id, true
}
