package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.FeeHandler, apiToken string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	fees := r.Group("/monthly-fees", handlers.BearerAuth(apiToken), handlers.HostelContext())
	fees.GET("", handler.List)
	fees.GET("/summary", handler.Summary)
	fees.GET("/payment-modes", handler.PaymentModes)
	fees.POST("/record-payment", handler.RecordPayment)
	fees.POST("/generate", handler.Generate)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if hostel := c.GetHeader(models.HostelHeader); hostel != "" {
			fields = append(fields, zap.String("hostel_id", hostel))
		}
		logger.Info("request completed", fields...)
	}
}
