package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signalbacktest/internal/app"
	"signalbacktest/internal/domain"
	"signalbacktest/internal/repository"
	l1_service "signalbacktest/internal/service/l1"
	l2_service "signalbacktest/internal/service/l2"
	l3_service "signalbacktest/internal/service/l3"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func testApiHandler() ApiHandler {
	dates := []time.Time{}
	for d := 2; d <= 6; d++ {
		dates = append(dates, time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC))
	}
	repo := repository.NewSecurityRepository(map[string]*domain.SecuritySeries{
		"AAA": {
			Symbol: "AAA",
			Dates:  dates,
			Close:  []float64{10, 9, 9.5, 10.6, 10.0},
		},
	})
	return ApiHandler{
		BacktestHandler: app.BacktestHandler{
			SecurityRepository: repo,
			PriceService:       l1_service.NewPriceService(repo),
			SignalService:      l2_service.NewSignalService(),
			PickerService:      l2_service.NewPickerService(),
			PortfolioService:   l3_service.NewPortfolioService(),
			RotationService:    l3_service.NewRotationService(),
		},
	}
}

func postJson(t *testing.T, router *gin.Engine, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func Test_backtest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := testApiHandler().Router()

	t.Run("happy path", func(t *testing.T) {
		w := postJson(t, router, "/backtest", map[string]interface{}{
			"startDate":      "2020-01-01",
			"endDate":        "2020-01-31",
			"initialCapital": 1000,
			"lot":            1,
			"strategy": map[string]interface{}{
				"oscillator": map[string]interface{}{
					"lookback":   1,
					"oversold":   -5,
					"overbought": 5,
				},
			},
		})
		require.Equal(t, 200, w.Code)

		var response backtestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

		require.NotEmpty(t, response.RunID)
		require.Len(t, response.Trades, 1)
		require.Equal(t, "2020-01-04", response.Trades[0].EntryDate)
		require.Equal(t, "2020-01-06", response.Trades[0].ExitDate)
		require.InDelta(t, 1052.5, response.Summary.FinalEquity, 1e-9)
		require.NotEmpty(t, response.EquityCurve)
	})

	t.Run("bad date is a 400", func(t *testing.T) {
		w := postJson(t, router, "/backtest", map[string]interface{}{
			"startDate":      "01/01/2020",
			"endDate":        "2020-01-31",
			"initialCapital": 1000,
			"lot":            1,
			"strategy":       map[string]interface{}{"crossover": map[string]interface{}{"fastWindow": 2, "slowWindow": 3}},
		})
		require.Equal(t, 400, w.Code)
	})

	t.Run("missing lot is a 400", func(t *testing.T) {
		w := postJson(t, router, "/backtest", map[string]interface{}{
			"startDate":      "2020-01-01",
			"endDate":        "2020-01-31",
			"initialCapital": 1000,
			"strategy":       map[string]interface{}{"crossover": map[string]interface{}{"fastWindow": 2, "slowWindow": 3}},
		})
		require.Equal(t, 400, w.Code)
	})

	t.Run("strategy must be set", func(t *testing.T) {
		w := postJson(t, router, "/backtest", map[string]interface{}{
			"startDate":      "2020-01-01",
			"endDate":        "2020-01-31",
			"initialCapital": 1000,
			"lot":            1,
		})
		require.Equal(t, 500, w.Code)
	})
}

func Test_rotation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := testApiHandler().Router()

	t.Run("happy path with default period", func(t *testing.T) {
		w := postJson(t, router, "/rotation", map[string]interface{}{
			"startDate":      "2020-01-01",
			"endDate":        "2020-01-31",
			"initialCapital": 1000,
			"expression":     "price(currentDate)",
			"topN":           1,
		})
		require.Equal(t, 200, w.Code)

		var response backtestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Trades, 1)
		require.Equal(t, "2020-01-02", response.Trades[0].EntryDate)
		require.Equal(t, "2020-01-06", response.Trades[0].ExitDate)
		require.Equal(t, string(domain.EventReason_PeriodExit), response.Trades[0].Reason)
	})

	t.Run("missing expression is a 500", func(t *testing.T) {
		w := postJson(t, router, "/rotation", map[string]interface{}{
			"startDate":      "2020-01-01",
			"endDate":        "2020-01-31",
			"initialCapital": 1000,
			"topN":           1,
		})
		require.Equal(t, 500, w.Code)
	})
}
