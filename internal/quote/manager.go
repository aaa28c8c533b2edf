package quote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"grid-buy-planner/internal/config"

	"go.uber.org/zap"
)

// Manager routes price queries to the currently selected provider.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]PriceQuerier
	current   string
	logger    *zap.Logger
}

var _ PriceQuerier = (*Manager)(nil)

// NewManager registers the Yahoo Finance and Alpha Vantage providers and
// selects the one named in cfg.Provider.
func NewManager(cfg *config.Quote, logger *zap.Logger) (*Manager, error) {
	return NewManagerWithProviders(cfg.Provider, map[string]PriceQuerier{
		ProviderYahoo:        NewYahooClient(cfg, logger),
		ProviderAlphaVantage: NewAlphaVantageClient(cfg, logger),
	}, logger)
}

// NewManagerWithProviders creates a Manager over an explicit provider set.
func NewManagerWithProviders(current string, providers map[string]PriceQuerier, logger *zap.Logger) (*Manager, error) {
	if _, ok := providers[current]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, current)
	}
	return &Manager{
		providers: providers,
		current:   current,
		logger:    logger.Named("quote-manager"),
	}, nil
}

// GetPrice queries the current provider.
func (m *Manager) GetPrice(ctx context.Context, symbol string) (float64, string, error) {
	m.mu.RLock()
	name, provider := m.current, m.providers[m.current]
	m.mu.RUnlock()

	price, source, err := provider.GetPrice(ctx, symbol)
	if err != nil {
		m.logger.Warn("Price query failed", zap.String("provider", name), zap.String("symbol", symbol), zap.Error(err))
		return 0, source, err
	}
	return price, source, nil
}

// Switch selects another registered provider.
func (m *Manager) Switch(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	m.current = name
	m.logger.Info("Switched price provider", zap.String("provider", name))
	return nil
}

// Current returns the name of the selected provider.
func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Providers returns the registered provider names in sorted order.
func (m *Manager) Providers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
