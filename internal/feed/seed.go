package feed

import (
	"context"
	"log"
	"sync/atomic"

	"digital-delta/internal/deltaapi"
	"digital-delta/internal/observability/metrics"
)

// AssetSource lists and seeds the asset collection.
type AssetSource interface {
	ListAssets(ctx context.Context) ([]deltaapi.Asset, error)
	Seed(ctx context.Context) error
}

// SeedOnce fetches assets and bootstraps an empty collection. The seed call and its
// refetch happen at most once per SeedOnce, so each mount builds its own.
type SeedOnce struct {
	source  AssetSource
	logger  *log.Logger
	claimed atomic.Bool
}

// NewSeedOnce constructs a bootstrap fetcher for one mount.
func NewSeedOnce(source AssetSource, logger *log.Logger) *SeedOnce {
	if logger == nil {
		logger = log.Default()
	}
	return &SeedOnce{source: source, logger: logger}
}

// Fetch lists assets. The first empty answer triggers seed and one refetch; later empty
// answers are returned as they are.
func (s *SeedOnce) Fetch(ctx context.Context) ([]deltaapi.Asset, error) {
	list, err := s.source.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 || !s.claimed.CompareAndSwap(false, true) {
		return list, nil
	}
	if err := s.source.Seed(ctx); err != nil {
		metrics.IncSeed(metrics.ResultError)
		s.logger.Printf("assets seed error: %v", err)
		return list, nil
	}
	metrics.IncSeed(metrics.ResultSuccess)
	return s.source.ListAssets(ctx)
}

// Seeded reports whether the bootstrap was claimed.
func (s *SeedOnce) Seeded() bool {
	return s.claimed.Load()
}
