package wx

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FlightCategory is the VFR/MVFR/IFR/LIFR classification derived from
// ceiling and visibility.
type FlightCategory string

const (
	VFR     FlightCategory = "VFR"
	MVFR    FlightCategory = "MVFR"
	IFR     FlightCategory = "IFR"
	LIFR    FlightCategory = "LIFR"
	Unknown FlightCategory = "UNKNOWN"
)

// ErrParse marks report text that could not be decoded.
var ErrParse = errors.New("unparseable report")

// Observation is a single decoded METAR. Values are fixed at construction;
// treat as immutable.
type Observation struct {
	Station      string
	Raw          string
	ObservedAt   time.Time
	Category     FlightCategory
	Visibility   *float64 // statute miles
	Ceiling      *int     // feet
	WindSpeed    int      // knots, sustained
	WindGust     int      // knots, 0 when not reported
	Thunderstorm bool
}

// Windy reports whether sustained or gust speed is strictly above the limit.
func (o Observation) Windy(maxKts int) bool {
	return o.WindSpeed > maxKts || o.WindGust > maxKts
}

var (
	stationRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)
	// Visibility may be fractional ("1/8SM", "1 1/2SM") or whole ("2SM").
	visibilityRe = regexp.MustCompile(`\b(?:(\d+)\s+)?(\d+)(?:/(\d))?SM`)
	ceilingRe    = regexp.MustCompile(`(?:VV|BKN|OVC)(\d{3})`)
	windRe       = regexp.MustCompile(`\b\d{3}(\d{2,3})G?(\d{2,3})?KT`)
	issuedRe     = regexp.MustCompile(`\b(\d{2})(\d{2})(\d{2})Z\b`)
)

// Parse decodes raw METAR text into an Observation.
func Parse(raw string) (Observation, error) {
	return ParseAt(raw, time.Now())
}

// ParseAt is Parse with an explicit reference time for resolving the
// report's day-of-month timestamp.
func ParseAt(raw string, now time.Time) (Observation, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Observation{}, fmt.Errorf("%w: empty text", ErrParse)
	}

	fields := strings.Fields(text)
	// Some feeds prefix the report type.
	if fields[0] == "METAR" || fields[0] == "SPECI" {
		fields = fields[1:]
	}
	if len(fields) == 0 || !stationRe.MatchString(fields[0]) {
		return Observation{}, fmt.Errorf("%w: no station identifier in %q", ErrParse, truncate(text, 32))
	}

	obs := Observation{
		Station:    fields[0],
		Raw:        text,
		ObservedAt: now.UTC(),
	}

	if m := issuedRe.FindStringSubmatch(text); m != nil {
		obs.ObservedAt = issuedAt(atoi(m[1]), atoi(m[2]), atoi(m[3]), now)
	}

	obs.Visibility = parseVisibility(text)
	if m := ceilingRe.FindStringSubmatch(text); m != nil {
		ceiling := atoi(m[1]) * 100 // reported in hundreds of feet
		obs.Ceiling = &ceiling
	}
	if m := windRe.FindStringSubmatch(text); m != nil {
		obs.WindSpeed = atoi(m[1])
		if m[2] != "" {
			obs.WindGust = atoi(m[2])
		}
	}
	obs.Thunderstorm = strings.Contains(text, "TSRA") || strings.Contains(text, "VCTS")
	obs.Category = categorize(obs.Visibility, obs.Ceiling)

	return obs, nil
}

func parseVisibility(text string) *float64 {
	m := visibilityRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	vis := float64(atoi(m[2]))
	if m[3] != "" {
		den := atoi(m[3])
		if den == 0 {
			return nil
		}
		vis /= float64(den)
	}
	if m[1] != "" {
		vis += float64(atoi(m[1]))
	}
	return &vis
}

// categorize applies the FAA category bands. A report without visibility
// classifies as Unknown; a clear-sky report with no ceiling group gets an
// unlimited ceiling so visibility still classifies.
// http://www.faraim.org/aim/aim-4-03-14-446.html
func categorize(visibility *float64, ceiling *int) FlightCategory {
	if visibility == nil {
		return Unknown
	}
	vis := *visibility
	ceil := 10000
	if ceiling != nil {
		ceil = *ceiling
	}
	switch {
	case vis < 1 || ceil < 500:
		return LIFR
	case vis < 3 || ceil < 1000:
		return IFR
	case vis <= 5 || ceil <= 3000:
		return MVFR
	default:
		return VFR
	}
}

// issuedAt resolves a DDHHMMZ group against the reference time, rolling back
// a month when the day-of-month is ahead of today or does not exist in the
// current month.
func issuedAt(day, hour, minute int, now time.Time) time.Time {
	now = now.UTC()
	if day < 1 || day > 31 || hour > 23 || minute > 59 {
		return now
	}
	t := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, time.UTC)
	if t.Day() != day || t.After(now.Add(24*time.Hour)) {
		t = time.Date(now.Year(), now.Month()-1, day, hour, minute, 0, 0, time.UTC)
	}
	return t
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
