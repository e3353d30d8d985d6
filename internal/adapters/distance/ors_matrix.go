package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"fmt"
	"io"
	"math"
	"net/http"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Units        string      `json:"units,omitempty"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// newMatrixRequest puts the origin at index 0 and asks for a single source row.
func newMatrixRequest(origin domain.Coordinates, dests []domain.Coordinates) matrixRequest {
	req := matrixRequest{
		Locations:    make([][]float64, 0, len(dests)+1),
		Sources:      []int{0},
		Destinations: make([]int, len(dests)),
		Metrics:      []string{"distance", "duration"},
		Units:        "m",
	}
	req.Locations = append(req.Locations, origin.CoordsToList())
	for i, d := range dests {
		req.Locations = append(req.Locations, d.CoordsToList())
		req.Destinations[i] = i + 1
	}
	return req
}

// decodeMatrixRow reads one source row of n cells. A null cell means ORS found no route.
func decodeMatrixRow(body io.Reader, n int) ([]ports.TravelResult, error) {
	var mr matrixResponse
	if err := json.NewDecoder(body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	if len(mr.Distances) != 1 || len(mr.Durations) != 1 {
		return nil, fmt.Errorf("expected 1 source row; got distances=%d durations=%d", len(mr.Distances), len(mr.Durations))
	}
	meters, seconds := mr.Distances[0], mr.Durations[0]
	if len(meters) != n || len(seconds) != n {
		return nil, fmt.Errorf("matrix row has %d/%d cells, want %d", len(meters), len(seconds), n)
	}

	row := make([]ports.TravelResult, n)
	for i := range row {
		if meters[i] == nil || seconds[i] == nil {
			return nil, fmt.Errorf("no route to destination %d", i)
		}
		row[i] = ports.TravelResult{
			DistanceMeters:  int(math.Round(*meters[i])),
			DurationSeconds: int(math.Round(*seconds[i])),
		}
	}
	return row, nil
}

// fetchMatrixRow asks the ORS matrix endpoint for origin -> each of coords.
// Results are keyed by the matching entry of keys.
func (o *ORSProvider) fetchMatrixRow(
	ctx context.Context,
	origin domain.Coordinates,
	keys []string,
	coords []domain.Coordinates,
) (map[string]ports.TravelResult, error) {
	if len(keys) != len(coords) {
		return nil, fmt.Errorf("fetch matrix row: %d keys for %d coordinates", len(keys), len(coords))
	}
	if len(keys) == 0 {
		return map[string]ports.TravelResult{}, nil
	}

	payload, err := json.Marshal(newMatrixRequest(origin, coords))
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)
	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	row, err := decodeMatrixRow(resp.Body, len(keys))
	if err != nil {
		return nil, err
	}

	out := make(map[string]ports.TravelResult, len(keys))
	for i, k := range keys {
		out[k] = row[i]
	}
	return out, nil
}
