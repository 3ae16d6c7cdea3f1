package airports

import (
	"time"

	"github.com/ScottSturdivant/rpi-metar/internal/leds"
	"github.com/ScottSturdivant/rpi-metar/internal/wx"
)

// OverlayKind names the blink effects that can sit on top of a station's
// base color.
type OverlayKind int

const (
	OverlayNone OverlayKind = iota
	OverlayWind
	OverlayLightning
)

func (k OverlayKind) String() string {
	switch k {
	case OverlayWind:
		return "wind"
	case OverlayLightning:
		return "lightning"
	default:
		return "none"
	}
}

// Overlay is a running blink effect: the effect color shows for the first
// half of the duration, the base color for the second half, then it clears.
type Overlay struct {
	Kind     OverlayKind
	Started  time.Time
	Duration time.Duration
}

// ActiveAt reports whether the overlay window still covers now.
func (o Overlay) ActiveAt(now time.Time) bool {
	return now.Sub(o.Started) < o.Duration
}

// EffectPhaseAt reports whether now falls in the first half of the window,
// where the effect color is displayed.
func (o Overlay) EffectPhaseAt(now time.Time) bool {
	return now.Sub(o.Started) < o.Duration/2
}

// Policy resolves observations into base colors and overlay decisions. It
// carries the palette-derived colors and the feature toggles; fields are
// read-only after construction so a single Policy is shared by every
// station.
type Policy struct {
	// Categories maps each flight category to its display color.
	Categories map[wx.FlightCategory]leds.Color

	OffColor       leds.Color
	OrangeColor    leds.Color
	WindColor      leds.Color
	LightningColor leds.Color

	Wind              bool
	MaxWind           int
	WindDuration      time.Duration
	Lightning         bool
	LightningDuration time.Duration

	UnknownOff       bool
	FailureThreshold int

	DoFade       bool
	FadeDuration time.Duration
}

// Resolve maps an observation (nil when none has arrived yet) onto a base
// color and an overlay request. Degradation wins over flight category and
// suppresses overlays; lightning wins over wind when both conditions hold.
func (p *Policy) Resolve(obs *wx.Observation, degraded bool) (leds.Color, OverlayKind) {
	if degraded {
		if p.UnknownOff {
			return p.OffColor, OverlayNone
		}
		return p.OrangeColor, OverlayNone
	}
	if obs == nil {
		return p.categoryColor(wx.Unknown), OverlayNone
	}

	base := p.categoryColor(obs.Category)
	switch {
	case p.Lightning && obs.Thunderstorm:
		return base, OverlayLightning
	case p.Wind && obs.Windy(p.MaxWind):
		return base, OverlayWind
	}
	return base, OverlayNone
}

func (p *Policy) categoryColor(cat wx.FlightCategory) leds.Color {
	if c, ok := p.Categories[cat]; ok {
		return c
	}
	return p.Categories[wx.Unknown]
}

// EffectColor is the color an overlay flashes during its first half.
func (p *Policy) EffectColor(kind OverlayKind) leds.Color {
	if kind == OverlayLightning {
		return p.LightningColor
	}
	return p.WindColor
}

func (p *Policy) overlayDuration(kind OverlayKind) time.Duration {
	if kind == OverlayLightning {
		return p.LightningDuration
	}
	return p.WindDuration
}
