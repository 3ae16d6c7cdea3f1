package display

import (
	"log/slog"
	"time"

	"github.com/ScottSturdivant/rpi-metar/internal/airports"
	"github.com/ScottSturdivant/rpi-metar/internal/leds"
)

// LegendEntry is a fixed, weather-independent LED assignment used as a
// color key on the panel. Legend indices never overlap station indices.
type LegendEntry struct {
	Name  string
	Index int
	Color leds.Color
}

// Renderer composes legend entries and station colors into frames on a
// strip. It is driven only by the display loop goroutine.
type Renderer struct {
	strip  leds.Strip
	legend []LegendEntry
	log    *slog.Logger
}

func NewRenderer(strip leds.Strip, legend []LegendEntry, log *slog.Logger) *Renderer {
	return &Renderer{strip: strip, legend: legend, log: log}
}

// Render writes the legend, advances every station one tick and writes its
// color to all of its indices, then flushes at the given brightness.
// Indices assigned to nothing keep whatever the strip last held. A write
// failure drops this frame; the next tick retries.
func (r *Renderer) Render(stations []*airports.Airport, now time.Time, brightness uint8) {
	for _, e := range r.legend {
		r.strip.SetPixel(e.Index, e.Color)
	}
	for _, st := range stations {
		c := st.Tick(now)
		for _, idx := range st.LEDs {
			r.strip.SetPixel(idx, c)
		}
	}
	if err := r.strip.Show(brightness); err != nil {
		r.log.Warn("frame write failed", "error", err)
	}
}

// Blank writes a final frame turning off every station-owned index while
// leaving the legend lit, then flushes. Used on shutdown before the strip
// is released.
func (r *Renderer) Blank(stations []*airports.Airport, brightness uint8) {
	for _, e := range r.legend {
		r.strip.SetPixel(e.Index, e.Color)
	}
	for _, st := range stations {
		for _, idx := range st.LEDs {
			r.strip.SetPixel(idx, leds.Off)
		}
	}
	if err := r.strip.Show(brightness); err != nil {
		r.log.Warn("final frame write failed", "error", err)
	}
}
