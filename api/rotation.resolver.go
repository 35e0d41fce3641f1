package api

import (
	"context"
	"fmt"

	"signalbacktest/internal/app"
	"signalbacktest/internal/domain"
	l2_service "signalbacktest/internal/service/l2"

	"github.com/gin-gonic/gin"
)

type rotationRequest struct {
	runConfigRequest
	Expression string `json:"expression"`
	TopN       int    `json:"topN"`
	Period     string `json:"period"`
}

func (m ApiHandler) rotation(c *gin.Context) {
	var requestBody rotationRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse request: %w", err), c, 400)
		return
	}

	cfg, err := requestBody.toDomain()
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}
	if err := cfg.Validate(); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	period := l2_service.PeriodUnit(requestBody.Period)
	if requestBody.Period == "" {
		period = l2_service.PeriodUnit_Monthly
	}

	profile, endProfile := domain.NewProfile()
	defer endProfile()
	ctx := context.WithValue(c.Request.Context(), domain.ContextProfileKey, profile)

	result, err := m.BacktestHandler.RunRotationBacktest(ctx, app.RotationBacktestInput{
		Config:     cfg,
		Expression: requestBody.Expression,
		TopN:       requestBody.TopN,
		Period:     period,
	})
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, toBacktestResponse(result))
}
