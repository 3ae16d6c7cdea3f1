package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const noaaBaseURL = "https://aviationweather.gov"

func init() {
	Register("noaa", func(opts Options) (Provider, error) {
		base := noaaBaseURL
		if opts.BaseURL != "" {
			base = opts.BaseURL
		}
		return NewNOAA(base, opts), nil
	})
}

// NOAA fetches from the aviationweather.gov METAR data API.
type NOAA struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewNOAA(baseURL string, opts Options) *NOAA {
	return &NOAA{
		client:  newHTTPClient(baseURL, opts.withDefaults()),
		breaker: newBreaker("noaa"),
	}
}

func (n *NOAA) Name() string { return "noaa" }

type noaaReport struct {
	ICAOID string `json:"icaoId"`
	RawOb  string `json:"rawOb"`
}

func (n *NOAA) Fetch(ctx context.Context, station string) (string, error) {
	station = strings.ToUpper(station)
	return throughBreaker(n.breaker, func() (string, error) {
		resp, err := n.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ids":    station,
				"format": "json",
			}).
			Get("/api/data/metar")
		if cerr := classify(resp, err); cerr != nil {
			return "", cerr
		}

		var reports []noaaReport
		if err := json.Unmarshal(resp.Body(), &reports); err != nil {
			return "", fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
		}
		for _, r := range reports {
			if strings.EqualFold(r.ICAOID, station) && r.RawOb != "" {
				return r.RawOb, nil
			}
		}
		return "", fmt.Errorf("%w: no report for %s", ErrNotFound, station)
	})
}
