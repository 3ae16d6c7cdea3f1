package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ScottSturdivant/rpi-metar/internal/leds"
	"github.com/ScottSturdivant/rpi-metar/internal/wx"
)

// Duration decodes from a Go duration string ("3s", "5m") or a bare
// number of seconds, the form older flat config files used.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(dur)
		return nil
	}
	var n float64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration %q", value.Value)
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Map is the panel map file: which airports drive which LEDs, the legend,
// palette and category overrides, and the weather display settings.
type Map struct {
	Stations []StationMapping  `yaml:"stations"`
	Legend   []LegendMapping   `yaml:"legend"`
	Palette  map[string]string `yaml:"palette"`
	// Categories overrides the flight-category color map; values are
	// palette names or hex colors.
	Categories map[string]string `yaml:"categories"`
	Settings   Settings          `yaml:"settings"`
	Sources    []string          `yaml:"sources"`
	Dimming    Dimming           `yaml:"dimming"`
}

// StationMapping assigns an airport code to one or more LED indices. Key
// distinguishes multiple entries for the same code; it defaults to the
// code itself.
type StationMapping struct {
	Code string `yaml:"code"`
	Key  string `yaml:"key"`
	LEDs []int  `yaml:"leds"`
}

// LegendMapping pins a static reference color to one LED. Color may be a
// palette name or hex; when omitted the entry's name is resolved as a
// flight category or effect name.
type LegendMapping struct {
	Name  string `yaml:"name"`
	Index int    `yaml:"index"`
	Color string `yaml:"color"`
}

// Settings are the weather display knobs.
type Settings struct {
	Brightness        *int     `yaml:"brightness"`
	DisableGamma      bool     `yaml:"disable_gamma"`
	DoFade            *bool    `yaml:"do_fade"`
	FadeDuration      Duration `yaml:"fade_duration"`
	Lightning         *bool    `yaml:"lightning"`
	LightningDuration Duration `yaml:"lightning_duration"`
	MaxWind           int      `yaml:"max_wind"`
	MetarRefreshRate  Duration `yaml:"metar_refresh_rate"`
	Wind              *bool    `yaml:"wind"`
	WindDuration      Duration `yaml:"wind_duration"`
	UnknownOff        *bool    `yaml:"unknown_off"`
}

// Dimming is the day/night brightness schedule, local wall-clock times.
type Dimming struct {
	Enabled    bool   `yaml:"enabled"`
	DayAt      string `yaml:"day_at"`
	NightAt    string `yaml:"night_at"`
	DayLevel   int    `yaml:"day_level"`
	NightLevel int    `yaml:"night_level"`
}

func (s *Settings) applyDefaults() {
	if s.Brightness == nil {
		v := 128
		s.Brightness = &v
	}
	if s.DoFade == nil {
		v := true
		s.DoFade = &v
	}
	if s.FadeDuration == 0 {
		s.FadeDuration = Duration(3 * time.Second)
	}
	if s.Lightning == nil {
		v := true
		s.Lightning = &v
	}
	if s.LightningDuration == 0 {
		s.LightningDuration = Duration(1 * time.Second)
	}
	if s.MaxWind == 0 {
		s.MaxWind = 30
	}
	if s.MetarRefreshRate == 0 {
		s.MetarRefreshRate = Duration(5 * time.Minute)
	}
	if s.Wind == nil {
		v := true
		s.Wind = &v
	}
	if s.WindDuration == 0 {
		s.WindDuration = Duration(1 * time.Second)
	}
	if s.UnknownOff == nil {
		v := true
		s.UnknownOff = &v
	}
}

// LoadMap reads and decodes the map file and applies setting defaults.
// Semantic validation happens in Resolve.
func LoadMap(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Map{}, fmt.Errorf("read map file: %w", err)
	}

	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Map{}, fmt.Errorf("parse map file %s: %w", path, err)
	}
	m.Settings.applyDefaults()
	if len(m.Sources) == 0 {
		m.Sources = defaultSources()
	}
	return m, nil
}

func defaultSources() []string {
	return []string{"noaa", "adds", "skyvector"}
}

// ResolvedLegend is a legend entry with its color resolved.
type ResolvedLegend struct {
	Name  string
	Index int
	Color leds.Color
}

// Resolved is the validated map with every color resolved against the
// palette.
type Resolved struct {
	Stations   []StationMapping
	Legend     []ResolvedLegend
	Palette    leds.Palette
	Categories map[wx.FlightCategory]leds.Color

	OffColor       leds.Color
	OrangeColor    leds.Color
	WindColor      leds.Color
	LightningColor leds.Color

	Settings Settings
	Sources  []string
	Dimming  Dimming
}

var categoryNames = map[string]wx.FlightCategory{
	"VFR":     wx.VFR,
	"MVFR":    wx.MVFR,
	"IFR":     wx.IFR,
	"LIFR":    wx.LIFR,
	"UNKNOWN": wx.Unknown,
}

// Resolve validates the map and resolves all colors. Station and legend
// indices must be non-negative and owned by exactly one entry.
func (m Map) Resolve() (Resolved, error) {
	m.Settings.applyDefaults()
	if len(m.Sources) == 0 {
		m.Sources = defaultSources()
	}

	palette := leds.DefaultPalette()
	for name, value := range m.Palette {
		c, err := leds.ParseHex(value)
		if err != nil {
			return Resolved{}, fmt.Errorf("palette %s: %w", name, err)
		}
		palette[strings.ToLower(name)] = c
	}

	categories := map[wx.FlightCategory]leds.Color{
		wx.VFR:     palette["green"],
		wx.MVFR:    palette["blue"],
		wx.IFR:     palette["red"],
		wx.LIFR:    palette["magenta"],
		wx.Unknown: palette["yellow"],
	}
	for name, value := range m.Categories {
		cat, ok := categoryNames[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return Resolved{}, fmt.Errorf("categories: unknown flight category %q", name)
		}
		c, err := palette.Resolve(value)
		if err != nil {
			return Resolved{}, fmt.Errorf("categories %s: %w", name, err)
		}
		categories[cat] = c
	}

	r := Resolved{
		Palette:        palette,
		Categories:     categories,
		OffColor:       palette["off"],
		OrangeColor:    palette["orange"],
		WindColor:      palette["yellow"],
		LightningColor: palette["white"],
		Settings:       m.Settings,
		Sources:        m.Sources,
		Dimming:        m.Dimming,
	}

	if len(m.Stations) == 0 {
		return Resolved{}, fmt.Errorf("no stations configured")
	}

	// Every LED index has exactly one owner.
	owners := map[int]string{}
	claim := func(index int, owner string) error {
		if index < 0 {
			return fmt.Errorf("%s: negative LED index %d", owner, index)
		}
		if prev, taken := owners[index]; taken {
			return fmt.Errorf("LED index %d assigned to both %s and %s", index, prev, owner)
		}
		owners[index] = owner
		return nil
	}

	seenKeys := map[string]bool{}
	for _, st := range m.Stations {
		code := strings.ToUpper(strings.TrimSpace(st.Code))
		if code == "" {
			return Resolved{}, fmt.Errorf("station with empty code")
		}
		key := strings.TrimSpace(st.Key)
		if key == "" {
			key = code
		}
		if seenKeys[key] {
			return Resolved{}, fmt.Errorf("duplicate station key %q (give repeated codes distinct keys)", key)
		}
		seenKeys[key] = true
		if len(st.LEDs) == 0 {
			return Resolved{}, fmt.Errorf("station %s: no LED indices", key)
		}
		for _, idx := range st.LEDs {
			if err := claim(idx, "station "+key); err != nil {
				return Resolved{}, err
			}
		}
		r.Stations = append(r.Stations, StationMapping{Code: code, Key: key, LEDs: st.LEDs})
	}

	for _, le := range m.Legend {
		name := strings.TrimSpace(le.Name)
		if name == "" {
			return Resolved{}, fmt.Errorf("legend entry with empty name")
		}
		if err := claim(le.Index, "legend "+name); err != nil {
			return Resolved{}, err
		}
		color, err := m.legendColor(le, palette, categories, r)
		if err != nil {
			return Resolved{}, err
		}
		r.Legend = append(r.Legend, ResolvedLegend{Name: name, Index: le.Index, Color: color})
	}

	if err := validateSettings(r.Settings); err != nil {
		return Resolved{}, err
	}
	if err := validateDimming(r.Dimming); err != nil {
		return Resolved{}, err
	}
	for _, src := range m.Sources {
		if strings.TrimSpace(src) == "" {
			return Resolved{}, fmt.Errorf("sources: empty source name")
		}
	}
	return r, nil
}

// legendColor resolves an explicit color, a flight-category name, or an
// effect name, in that order.
func (m Map) legendColor(le LegendMapping, palette leds.Palette, categories map[wx.FlightCategory]leds.Color, r Resolved) (leds.Color, error) {
	if le.Color != "" {
		c, err := palette.Resolve(le.Color)
		if err != nil {
			return leds.Color{}, fmt.Errorf("legend %s: %w", le.Name, err)
		}
		return c, nil
	}
	if cat, ok := categoryNames[strings.ToUpper(strings.TrimSpace(le.Name))]; ok {
		return categories[cat], nil
	}
	switch strings.ToLower(strings.TrimSpace(le.Name)) {
	case "wind":
		return r.WindColor, nil
	case "lightning":
		return r.LightningColor, nil
	}
	return leds.Color{}, fmt.Errorf("legend %s: no color given and name is not a category or effect", le.Name)
}

func validateSettings(s Settings) error {
	if *s.Brightness < 0 || *s.Brightness > 255 {
		return fmt.Errorf("brightness must be 0-255, got %d", *s.Brightness)
	}
	if s.MaxWind < 0 {
		return fmt.Errorf("max_wind must not be negative, got %d", s.MaxWind)
	}
	for name, d := range map[string]Duration{
		"fade_duration":      s.FadeDuration,
		"lightning_duration": s.LightningDuration,
		"metar_refresh_rate": s.MetarRefreshRate,
		"wind_duration":      s.WindDuration,
	} {
		if d.Std() <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d.Std())
		}
	}
	return nil
}

func validateDimming(d Dimming) error {
	if !d.Enabled {
		return nil
	}
	for name, at := range map[string]string{"day_at": d.DayAt, "night_at": d.NightAt} {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("dimming %s: want HH:MM, got %q", name, at)
		}
	}
	for name, level := range map[string]int{"day_level": d.DayLevel, "night_level": d.NightLevel} {
		if level < 0 || level > 255 {
			return fmt.Errorf("dimming %s must be 0-255, got %d", name, level)
		}
	}
	return nil
}
