package api

import (
	"fmt"
	"time"

	"signalbacktest/internal/app"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ApiHandler struct {
	BacktestHandler app.BacktestHandler
}

func (m ApiHandler) StartApi(port int) error {
	router := m.Router()
	return router.Run(fmt.Sprintf(":%d", port))
}

func (m ApiHandler) Router() *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(logRequestMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to signalbacktest"})
	})
	router.POST("/backtest", m.backtest)
	router.POST("/rotation", m.rotation)

	return router
}

func logRequestMiddleware(c *gin.Context) {
	requestID := uuid.New()
	start := time.Now()
	c.Next()
	zap.S().Infow("handled request",
		"requestId", requestID.String(),
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"elapsedMs", time.Since(start).Milliseconds(),
	)
}

func returnErrorJson(err error, c *gin.Context) {
	zap.S().Error(err.Error())
	c.AbortWithStatusJSON(500, gin.H{
		"error": err.Error(),
	})
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	zap.S().Error(err.Error())
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}
