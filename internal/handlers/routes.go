package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API under api. archive may be nil when no database is configured.
func RegisterRoutes(api *gin.RouterGroup, analysis *AnalysisHandler, history *HistoryHandler, archive *ArchiveHandler) {
	analyses := api.Group("/analyses")
	{
		analyses.POST("", analysis.SubmitAnalysis)
		analyses.GET("/current", analysis.GetCurrent)
		analyses.GET("/current/stream", analysis.StreamCurrent)
		analyses.DELETE("/current", analysis.CancelCurrent)
	}

	hist := api.Group("/history")
	{
		hist.GET("", history.ListHistory)
		hist.DELETE("", history.ClearHistory)
		hist.GET("/selected", history.ConsumeSelection)
		hist.GET("/:id", history.GetHistoryItem)
		hist.POST("/:id/select", history.SelectHistoryItem)
		hist.GET("/:id/report", history.DownloadReport)
	}

	if archive != nil {
		reports := api.Group("/archive")
		{
			reports.GET("", archive.ListReports)
			reports.GET("/:id", archive.GetReport)
		}
	}
}
