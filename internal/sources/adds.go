package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const addsBaseURL = "https://aviationweather.gov"

func init() {
	Register("adds", func(opts Options) (Provider, error) {
		base := addsBaseURL
		if opts.BaseURL != "" {
			base = opts.BaseURL
		}
		return NewADDS(base, opts), nil
	})
}

// ADDS fetches from the legacy NOAA ADDS dataserver, which speaks XML. Kept
// as a second NOAA flavor so an API outage on one endpoint does not take
// both out.
type ADDS struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewADDS(baseURL string, opts Options) *ADDS {
	return &ADDS{
		client:  newHTTPClient(baseURL, opts.withDefaults()),
		breaker: newBreaker("adds"),
	}
}

func (a *ADDS) Name() string { return "adds" }

type addsResponse struct {
	XMLName xml.Name `xml:"response"`
	Data    struct {
		METARs []struct {
			RawText   string `xml:"raw_text"`
			StationID string `xml:"station_id"`
		} `xml:"METAR"`
	} `xml:"data"`
}

func (a *ADDS) Fetch(ctx context.Context, station string) (string, error) {
	station = strings.ToUpper(station)
	return throughBreaker(a.breaker, func() (string, error) {
		resp, err := a.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"requestType":              "retrieve",
				"dataSource":               "metars",
				"format":                   "xml",
				"stationString":            station,
				"hoursBeforeNow":           "2",
				"mostRecentForEachStation": "true",
			}).
			Get("/cgi-bin/data/dataserver.php")
		if cerr := classify(resp, err); cerr != nil {
			return "", cerr
		}

		var decoded addsResponse
		if err := xml.Unmarshal(resp.Body(), &decoded); err != nil {
			return "", fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
		}
		for _, m := range decoded.Data.METARs {
			if strings.EqualFold(m.StationID, station) && m.RawText != "" {
				return m.RawText, nil
			}
		}
		return "", fmt.Errorf("%w: no report for %s", ErrNotFound, station)
	})
}
