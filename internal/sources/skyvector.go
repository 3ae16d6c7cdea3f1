package sources

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const skyVectorBaseURL = "https://skyvector.com"

func init() {
	Register("skyvector", func(opts Options) (Provider, error) {
		base := skyVectorBaseURL
		if opts.BaseURL != "" {
			base = opts.BaseURL
		}
		return NewSkyVector(base, opts), nil
	})
}

// Airport coordinates for bounding-box queries, rows of code,lat,lon.
//
//go:embed us-airports.csv
var airportCSV []byte

// SkyVector fetches from skyvector.com's map layer API, which serves METARs
// for a bounding box rather than by station id.
type SkyVector struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewSkyVector(baseURL string, opts Options) *SkyVector {
	return &SkyVector{
		client:  newHTTPClient(baseURL, opts.withDefaults()),
		breaker: newBreaker("skyvector"),
	}
}

func (s *SkyVector) Name() string { return "skyvector" }

type skyVectorResponse struct {
	Weather []struct {
		Station string `json:"s"`
		Raw     string `json:"m"`
	} `json:"weather"`
}

func (s *SkyVector) Fetch(ctx context.Context, station string) (string, error) {
	station = strings.ToUpper(station)
	coord, ok := airportCoordinates()[station]
	if !ok {
		return "", fmt.Errorf("%w: no coordinates for %s", ErrNotFound, station)
	}

	return throughBreaker(s.breaker, func() (string, error) {
		// The API is not inclusive at the edges, so pad the box.
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ll1":    fmt.Sprintf("%.4f,%.4f", coord.lat-0.5, coord.lon-0.5),
				"ll2":    fmt.Sprintf("%.4f,%.4f", coord.lat+0.5, coord.lon+0.5),
				"layers": "metar",
			}).
			Get("/api/dLayer")
		if cerr := classify(resp, err); cerr != nil {
			return "", cerr
		}

		var decoded skyVectorResponse
		if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
			return "", fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
		}
		for _, item := range decoded.Weather {
			if strings.EqualFold(item.Station, station) && item.Raw != "" {
				return item.Raw, nil
			}
		}
		return "", fmt.Errorf("%w: %s not in layer response", ErrNotFound, station)
	})
}

type coordinate struct {
	lat, lon float64
}

var (
	coordsOnce sync.Once
	coords     map[string]coordinate
)

func airportCoordinates() map[string]coordinate {
	coordsOnce.Do(func() {
		coords = make(map[string]coordinate)
		reader := csv.NewReader(bytes.NewReader(airportCSV))
		reader.FieldsPerRecord = 3
		rows, err := reader.ReadAll()
		if err != nil {
			// The table ships inside the binary; a bad row is a build
			// defect, not a runtime condition.
			panic(fmt.Sprintf("embedded airport table: %v", err))
		}
		for _, row := range rows {
			lat, latErr := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
			lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
			if latErr != nil || lonErr != nil {
				panic(fmt.Sprintf("embedded airport table: bad row %v", row))
			}
			coords[strings.ToUpper(strings.TrimSpace(row[0]))] = coordinate{lat: lat, lon: lon}
		}
	})
	return coords
}
