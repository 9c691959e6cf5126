package parser

import (
	"context"
	"fmt"
	"log/slog"

	"InventoryTracker/internal/config"
	"InventoryTracker/internal/domain"
	"InventoryTracker/internal/ports"
	"InventoryTracker/internal/scanner"
)

// StrategySource implements InventorySource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.InventorySource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchInventory iterates over configured sites and executes their scanners.
func (s *StrategySource) FetchInventory(ctx context.Context) ([]domain.Vehicle, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch inventory", "sites", len(s.sites))

	var aggregated []domain.Vehicle
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "queries", len(site.Queries))
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		req := scanner.Request{
			SiteName: site.Name,
			Limit:    site.Limit,
			Options:  site.Options,
			Queries:  toScannerQueries(site.Queries),
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
		}

		s.debug("site produced vehicles", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_vehicles", len(aggregated))
	return aggregated, nil
}

func toScannerQueries(cfg []config.QueryConfig) []scanner.Query {
	queries := make([]scanner.Query, 0, len(cfg))
	for _, query := range cfg {
		queries = append(queries, scanner.Query{
			Name: query.Name,
			URL:  query.URL,
		})
	}
	return queries
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
