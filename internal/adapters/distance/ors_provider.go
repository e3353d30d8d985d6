package distance

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TravelCache stores origin->destination results keyed by Coordinates.Key.
type TravelCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]ports.TravelResult, error)
	PutMany(ctx context.Context, origin string, results map[string]ports.TravelResult) error
}

type ORSOptions struct {
	BaseURL        string
	Profile        string
	RatePerSec     float64
	MaxAttempts    int
	InitialBackoff time.Duration
	Timeout        time.Duration
}

// ORSProvider implements TravelMatrixProvider using the OpenRouteService matrix API.
//
// It coordinates:
//   - Persistent travel-time caching
//   - Client-side rate limiting
//   - A circuit breaker around the matrix endpoint
//   - External API calls with bounded retry/backoff
//
// The provider is safe for concurrent use. The ORS driving profile has no traffic
// model, so departure time does not influence results or cache keys.
type ORSProvider struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	profile     string
	cache       TravelCache
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	maxAttempts int
	backoff     time.Duration
}

func NewORSProvider(apiKey string, cache TravelCache, opts ORSOptions) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openrouteservice.org"
	}
	if opts.Profile == "" {
		opts.Profile = "driving-car"
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 4
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}

	provider := &ORSProvider{
		session:     &http.Client{Timeout: opts.Timeout},
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		profile:     opts.Profile,
		cache:       cache,
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.InitialBackoff,
	}

	provider.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ors-matrix",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return provider, nil
}

// Delegate to batched path to reuse caching and matrix logic.
func (o *ORSProvider) TravelTime(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	departAt time.Time,
) (ports.TravelResult, error) {
	results, err := o.TravelTimes(ctx, origin, []domain.Coordinates{destination}, departAt)
	if err != nil {
		return ports.TravelResult{}, err
	}

	return results[0], nil
}

// Compute travel results from a single origin to many destinations.
func (o *ORSProvider) TravelTimes(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
	departAt time.Time,
) (_ []ports.TravelResult, err error) {
	defer obs.Time(ctx, "ors.TravelTimes")(&err)

	out := make([]ports.TravelResult, len(destinations))
	if len(destinations) == 0 {
		return out, nil
	}

	originKey := origin.Key()

	// Deduplicate destinations; identical points cost nothing.
	destKeys := make([]string, 0, len(destinations))
	coordsByKey := make(map[string]domain.Coordinates, len(destinations))
	for _, d := range destinations {
		k := d.Key()
		if k == originKey {
			continue
		}
		if _, ok := coordsByKey[k]; ok {
			continue
		}
		coordsByKey[k] = d
		destKeys = append(destKeys, k)
	}

	hits := make(map[string]ports.TravelResult)
	// Check persistent cache before issuing external API calls.
	if o.cache != nil && len(destKeys) > 0 {
		cached, err := o.cache.GetMany(ctx, originKey, destKeys)
		if err != nil {
			zap.L().Warn("travel cache read failed", zap.Error(err))
		} else {
			hits = cached
		}
	}

	misses := make([]string, 0, len(destKeys))
	for _, k := range destKeys {
		if _, ok := hits[k]; !ok {
			misses = append(misses, k)
		}
	}

	if len(misses) > 0 {
		missCoords := make([]domain.Coordinates, 0, len(misses))
		for _, k := range misses {
			missCoords = append(missCoords, coordsByKey[k])
		}

		// Fetch a single origin->many matrix row for all cache misses.
		v, err := o.breaker.Execute(func() (interface{}, error) {
			return o.fetchMatrixRow(ctx, origin, misses, missCoords)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, domain.ProviderErr(err, "travel-time lookup from %s failed", originKey)
		}
		fetched := v.(map[string]ports.TravelResult)

		if o.cache != nil {
			if err := o.cache.PutMany(ctx, originKey, fetched); err != nil {
				zap.L().Warn("travel cache write failed", zap.Error(err))
			}
		}

		for k, r := range fetched {
			hits[k] = r
		}
	}

	for i, d := range destinations {
		k := d.Key()
		if k == originKey {
			continue
		}
		r, ok := hits[k]
		if !ok {
			return nil, domain.ProviderErr(nil, "no travel result for %s -> %s", originKey, k)
		}
		out[i] = r
	}

	return out, nil
}

var _ ports.TravelMatrixProvider = (*ORSProvider)(nil)
