package app

import (
	"fmt"

	"signalbacktest/internal/repository"
	l1_service "signalbacktest/internal/service/l1"
	l2_service "signalbacktest/internal/service/l2"
	l3_service "signalbacktest/internal/service/l3"
)

// InitializeDependencies wires a BacktestHandler over a price universe CSV.
func InitializeDependencies(pricesPath string) (*BacktestHandler, error) {
	securityRepository, err := repository.LoadUniverseCSVFile(pricesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load universe: %w", err)
	}

	return &BacktestHandler{
		SecurityRepository: securityRepository,
		PriceService:       l1_service.NewPriceService(securityRepository),
		SignalService:      l2_service.NewSignalService(),
		PickerService:      l2_service.NewPickerService(),
		PortfolioService:   l3_service.NewPortfolioService(),
		RotationService:    l3_service.NewRotationService(),
	}, nil
}
