package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/procurex/order-relay/internal/domain/model"
	"github.com/procurex/order-relay/internal/domain/registry"
	"golang.org/x/sync/errgroup"
)

// SellerSelector picks the nearest sellers for an order and writes the
// result into the order state exactly once.
type SellerSelector interface {
	Select(ctx context.Context, cell *registry.OrderCell) ([]model.SellerEntry, error)
}

type selector struct {
	facade     PersistenceFacade
	oracle     DistanceOracle
	cache      *lru.Cache[string, float64]
	maxSellers int
	fallbackKM float64
	logger     *slog.Logger
}

// NewSellerSelector builds the selector with an LRU over oracle results so
// repeated area pairs skip the network round-trip.
func NewSellerSelector(facade PersistenceFacade, oracle DistanceOracle, maxSellers int, fallbackKM float64, cacheSize int, logger *slog.Logger) SellerSelector {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, _ := lru.New[string, float64](cacheSize)

	return &selector{
		facade:     facade,
		oracle:     oracle,
		cache:      cache,
		maxSellers: maxSellers,
		fallbackKM: fallbackKM,
		logger:     logger.With(slog.String("component", "seller-selector")),
	}
}

// Select resolves industry and location, measures every candidate, and keeps
// the nearest maxSellers. Oracle failures degrade to the fallback distance;
// only facade failures are fatal, because without an industry there is no
// candidate set at all.
func (s *selector) Select(ctx context.Context, cell *registry.OrderCell) ([]model.SellerEntry, error) {
	if snap := cell.Snapshot(); snap.Sellers != nil {
		return snap.Sellers, nil
	}

	orderID := cell.OrderID()
	octx, err := s.facade.OrderContext(ctx, orderID)
	if err != nil {
		return nil, fault.Wrap(fault.Unavailable, err, "resolve order context for %s", orderID)
	}

	candidates, err := s.facade.SellersByIndustry(ctx, octx.Industry)
	if err != nil {
		return nil, fault.Wrap(fault.Unavailable, err, "enumerate sellers in %s", octx.Industry)
	}
	if len(candidates) == 0 {
		return nil, fault.New(fault.NotFound, "no sellers registered for industry %s", octx.Industry)
	}

	// Indexed writes keep the facade's enumeration order intact, which the
	// stable sort below uses as the tie-break for equal distances.
	entries := make([]model.SellerEntry, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, cand := range candidates {
		g.Go(func() error {
			entries[i] = model.SellerEntry{
				SellerID:   cand.SellerID,
				DistanceKM: s.distanceOrFallback(gctx, octx.BuyerArea, cand.Area),
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DistanceKM < entries[j].DistanceKM
	})
	if len(entries) > s.maxSellers {
		entries = entries[:s.maxSellers]
	}

	if err := cell.SetSellers(entries); err != nil {
		// Lost a race with a concurrent selection; theirs stands.
		return cell.Snapshot().Sellers, nil
	}

	s.logger.Info("sellers selected",
		slog.String("order_id", orderID),
		slog.String("industry", octx.Industry),
		slog.Int("candidates", len(candidates)),
		slog.Int("selected", len(entries)),
	)
	return entries, nil
}

func (s *selector) distanceOrFallback(ctx context.Context, from, to string) float64 {
	key := fmt.Sprintf("%s|%s", from, to)
	if km, ok := s.cache.Get(key); ok {
		return km
	}

	km, err := s.oracle.BetweenKM(ctx, from, to)
	if err != nil {
		s.logger.Warn("distance oracle failed, using fallback",
			slog.String("from", from),
			slog.String("to", to),
			slog.Float64("fallback_km", s.fallbackKM),
			slog.Any("err", err),
		)
		return s.fallbackKM
	}

	s.cache.Add(key, km)
	return km
}
