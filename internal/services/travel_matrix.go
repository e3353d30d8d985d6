package services

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// node is a routable point: the garage or a ticket.
type node struct {
	ID       string
	Location domain.Coordinates
}

// TravelMatrix holds "from|to" -> travel result for every ordered pair of nodes.
type TravelMatrix map[string]ports.TravelResult

func (m TravelMatrix) Get(from, to string) (ports.TravelResult, bool) {
	r, ok := m[from+"|"+to]
	return r, ok
}

// buildTravelMatrix fetches every ordered pair between nodes.
//
// Each origin is one unit of work: a single batched call when the provider
// supports it, otherwise one call per target. At most concurrency origins are
// in flight; the first failure cancels the rest.
func buildTravelMatrix(
	ctx context.Context,
	provider ports.TravelTimeProvider,
	nodes []node,
	departAt time.Time,
	concurrency int,
) (TravelMatrix, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	rows := make([][]ports.TravelResult, len(nodes))
	mp, hasMatrix := provider.(ports.TravelMatrixProvider)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for oi := range nodes {
		oi := oi // per-iteration copy (Go 1.22 loop semantics)
		origin := nodes[oi]
		targets := make([]domain.Coordinates, 0, len(nodes)-1)
		for ti, t := range nodes {
			if ti != oi {
				targets = append(targets, t.Location)
			}
		}

		g.Go(func() error {
			if hasMatrix {
				res, err := mp.TravelTimes(gctx, origin.Location, targets, departAt)
				if err != nil {
					return fmt.Errorf("travel times from %s: %w", origin.ID, providerFailure(err))
				}
				if len(res) != len(targets) {
					return fmt.Errorf("travel times from %s: got %d results for %d targets", origin.ID, len(res), len(targets))
				}
				rows[oi] = res
				return nil
			}

			res := make([]ports.TravelResult, len(targets))
			for i, t := range targets {
				r, err := provider.TravelTime(gctx, origin.Location, t, departAt)
				if err != nil {
					return fmt.Errorf("travel time from %s: %w", origin.ID, providerFailure(err))
				}
				res[i] = r
			}
			rows[oi] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	matrix := make(TravelMatrix, len(nodes)*len(nodes))
	for oi, origin := range nodes {
		ti := 0
		for di, dest := range nodes {
			if di == oi {
				continue
			}
			matrix[origin.ID+"|"+dest.ID] = rows[oi][ti]
			ti++
		}
	}

	return matrix, nil
}
