package l2_service

import (
	"fmt"
	"time"

	l1_service "signalbacktest/internal/service/l1"

	"github.com/maja42/goval"
)

const dateLayout = time.DateOnly

// evaluatePickExpression scores one symbol on one date. The expression speaks
// in dates, not indexes, so weekend/holiday boundaries are smoothed by
// looking back up to a week for the nearest quote.
func evaluatePickExpression(expression string, symbol string, date time.Time, prices *l1_service.PriceCache) (float64, error) {
	eval := goval.NewEvaluator()

	variables := map[string]interface{}{
		"currentDate": date.Format(dateLayout),
	}

	result, err := eval.Evaluate(expression, variables, expressionFunctions(symbol, date, prices))
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate expression for %s: %w", symbol, err)
	}

	return toFloat(result)
}

func expressionFunctions(symbol string, currentDate time.Time, prices *l1_service.PriceCache) map[string]goval.ExpressionFunction {
	return map[string]goval.ExpressionFunction{
		// date helpers

		"nDaysAgo": func(args ...interface{}) (interface{}, error) {
			n, err := argInt("nDaysAgo", args)
			if err != nil {
				return 0, err
			}
			return currentDate.AddDate(0, 0, -n).Format(dateLayout), nil
		},
		"nMonthsAgo": func(args ...interface{}) (interface{}, error) {
			n, err := argInt("nMonthsAgo", args)
			if err != nil {
				return 0, err
			}
			return currentDate.AddDate(0, -n, 0).Format(dateLayout), nil
		},

		// metric functions

		// price(date strDate)
		"price": func(args ...interface{}) (interface{}, error) {
			date, err := argDate("price", args, 0)
			if err != nil {
				return 0, err
			}
			return priceNear(prices, symbol, date)
		},

		// pricePercentChange(start, end strDate)
		"pricePercentChange": func(args ...interface{}) (interface{}, error) {
			if len(args) < 2 {
				return 0, fmt.Errorf("pricePercentChange needs 2 args, got %d", len(args))
			}
			start, err := argDate("pricePercentChange", args, 0)
			if err != nil {
				return 0, err
			}
			end, err := argDate("pricePercentChange", args, 1)
			if err != nil {
				return 0, err
			}
			startPrice, err := priceNear(prices, symbol, start)
			if err != nil {
				return 0, err
			}
			endPrice, err := priceNear(prices, symbol, end)
			if err != nil {
				return 0, err
			}
			return (endPrice - startPrice) / startPrice * 100, nil
		},
	}
}

// priceNear walks back up to 7 calendar days for the most recent quote.
func priceNear(prices *l1_service.PriceCache, symbol string, date time.Time) (float64, error) {
	var lastErr error
	for i := 0; i < 7; i++ {
		price, err := prices.Get(symbol, date.AddDate(0, 0, -i))
		if err == nil {
			return price, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

func argInt(name string, args []interface{}) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s needs 1 arg, got %d", name, len(args))
	}
	n, ok := args[0].(int)
	if !ok {
		return 0, fmt.Errorf("%s needs an int arg, got %T", name, args[0])
	}
	return n, nil
}

func argDate(name string, args []interface{}, i int) (time.Time, error) {
	if len(args) <= i {
		return time.Time{}, fmt.Errorf("%s needs %d args, got %d", name, i+1, len(args))
	}
	s, ok := args[i].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%s needs a date string, got %T", name, args[i])
	}
	return time.Parse(dateLayout, s)
}

func toFloat(result interface{}) (float64, error) {
	switch v := result.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expression must produce a number, got %T", result)
	}
}
