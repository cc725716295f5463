package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires every route onto a new gin engine
func NewRouter(sessions *SessionHandler, reports *ReportHandler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Session endpoints
		api.POST("/sessions", sessions.CreateSession)
		api.GET("/sessions/:id", sessions.GetSession)
		api.DELETE("/sessions/:id", sessions.DeleteSession)
		api.POST("/sessions/:id/document", sessions.SubmitDocument)
		api.POST("/sessions/:id/document/file", sessions.UploadDocument)
		api.POST("/sessions/:id/reset", sessions.ResetSession)
		api.PUT("/sessions/:id/selection", sessions.SelectClause)
		api.GET("/sessions/:id/clauses/:clauseId/:tab", sessions.LoadTab)
		api.POST("/sessions/:id/questions", sessions.AskQuestion)
		api.POST("/sessions/:id/scenarios", sessions.SimulateScenario)
		api.POST("/sessions/:id/report", sessions.ExportReport)

		// Report endpoints
		api.GET("/reports/:id", reports.GetReport)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
