package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ScottSturdivant/rpi-metar/internal/leds"
	"github.com/ScottSturdivant/rpi-metar/internal/wx"
)

func writeMap(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rpi_metar.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write map file: %v", err)
	}
	return path
}

const fullMap = `
stations:
  - code: kden
    key: kden-front
    leds: [10, 11]
  - code: KDEN
    key: kden-back
    leds: [12]
  - code: ksea
    leds: [13]
legend:
  - name: VFR
    index: 0
  - name: lightning
    index: 1
  - name: tower
    index: 2
    color: "#102030"
palette:
  orange: "#ff8800"
categories:
  lifr: "#400040"
settings:
  brightness: 40
  disable_gamma: true
  do_fade: false
  fade_duration: 2s
  lightning: true
  lightning_duration: 1.5
  max_wind: 25
  metar_refresh_rate: 300
  wind: false
  wind_duration: 2s
  unknown_off: false
sources: [noaa, skyvector]
dimming:
  enabled: true
  day_at: "07:00"
  night_at: "21:30"
  day_level: 128
  night_level: 16
`

func TestLoadMapAndResolve(t *testing.T) {
	m, err := LoadMap(writeMap(t, fullMap))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	r, err := m.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(r.Stations) != 3 {
		t.Fatalf("stations: got %d, want 3", len(r.Stations))
	}
	if r.Stations[0].Code != "KDEN" || r.Stations[0].Key != "kden-front" {
		t.Errorf("station 0: %+v", r.Stations[0])
	}
	if r.Stations[2].Key != "KSEA" {
		t.Errorf("default key: got %q, want KSEA", r.Stations[2].Key)
	}

	if len(r.Legend) != 3 {
		t.Fatalf("legend: got %d entries, want 3", len(r.Legend))
	}
	if r.Legend[0].Color != leds.Green {
		t.Errorf("legend VFR: got %v, want %v", r.Legend[0].Color, leds.Green)
	}
	if r.Legend[1].Color != leds.White {
		t.Errorf("legend lightning: got %v, want %v", r.Legend[1].Color, leds.White)
	}
	if (r.Legend[2].Color != leds.Color{R: 0x10, G: 0x20, B: 0x30}) {
		t.Errorf("legend tower: got %v", r.Legend[2].Color)
	}

	if (r.OrangeColor != leds.Color{R: 0xff, G: 0x88, B: 0}) {
		t.Errorf("palette override not applied to orange: %v", r.OrangeColor)
	}
	if r.Categories[wx.Unknown] != leds.Yellow {
		t.Errorf("UNKNOWN category: got %v, want %v", r.Categories[wx.Unknown], leds.Yellow)
	}
	if (r.Categories[wx.LIFR] != leds.Color{R: 0x40, B: 0x40}) {
		t.Errorf("LIFR override: got %v", r.Categories[wx.LIFR])
	}
	if r.Categories[wx.IFR] != leds.Red {
		t.Errorf("IFR category: got %v, want %v", r.Categories[wx.IFR], leds.Red)
	}

	s := r.Settings
	if *s.Brightness != 40 || !s.DisableGamma || *s.DoFade || *s.Wind || !*s.Lightning || *s.UnknownOff {
		t.Errorf("settings toggles: %+v", s)
	}
	if s.FadeDuration.Std() != 2*time.Second {
		t.Errorf("fade_duration: got %v", s.FadeDuration.Std())
	}
	if s.LightningDuration.Std() != 1500*time.Millisecond {
		t.Errorf("lightning_duration: got %v", s.LightningDuration.Std())
	}
	if s.MetarRefreshRate.Std() != 300*time.Second {
		t.Errorf("metar_refresh_rate from bare seconds: got %v", s.MetarRefreshRate.Std())
	}
	if s.MaxWind != 25 {
		t.Errorf("max_wind: got %d", s.MaxWind)
	}

	if len(r.Sources) != 2 || r.Sources[0] != "noaa" || r.Sources[1] != "skyvector" {
		t.Errorf("sources: %v", r.Sources)
	}
	if !r.Dimming.Enabled || r.Dimming.NightLevel != 16 {
		t.Errorf("dimming: %+v", r.Dimming)
	}
}

func TestLoadMapDefaults(t *testing.T) {
	m, err := LoadMap(writeMap(t, "stations:\n  - code: KDEN\n    leds: [0]\n"))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	r, err := m.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	s := r.Settings
	if *s.Brightness != 128 {
		t.Errorf("default brightness: got %d, want 128", *s.Brightness)
	}
	if !*s.DoFade || !*s.Wind || !*s.Lightning || !*s.UnknownOff {
		t.Errorf("default toggles: %+v", s)
	}
	if s.FadeDuration.Std() != 3*time.Second {
		t.Errorf("default fade_duration: got %v", s.FadeDuration.Std())
	}
	if s.MetarRefreshRate.Std() != 5*time.Minute {
		t.Errorf("default metar_refresh_rate: got %v", s.MetarRefreshRate.Std())
	}
	if s.MaxWind != 30 {
		t.Errorf("default max_wind: got %d", s.MaxWind)
	}
	if len(r.Sources) != 3 || r.Sources[0] != "noaa" || r.Sources[1] != "adds" || r.Sources[2] != "skyvector" {
		t.Errorf("default sources: %v", r.Sources)
	}
	if r.Categories[wx.VFR] != leds.Green || r.Categories[wx.Unknown] != leds.Yellow {
		t.Errorf("default categories: %v", r.Categories)
	}
}

func TestLoadMapMissingFile(t *testing.T) {
	if _, err := LoadMap(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadMap read a nonexistent file")
	}
}

func TestResolveRejections(t *testing.T) {
	cases := map[string]struct {
		yaml    string
		errWant string
	}{
		"no stations": {
			yaml:    "legend:\n  - name: VFR\n    index: 0\n",
			errWant: "no stations",
		},
		"empty code": {
			yaml:    "stations:\n  - code: \"\"\n    leds: [0]\n",
			errWant: "empty code",
		},
		"no leds": {
			yaml:    "stations:\n  - code: KDEN\n    leds: []\n",
			errWant: "no LED indices",
		},
		"negative index": {
			yaml:    "stations:\n  - code: KDEN\n    leds: [-1]\n",
			errWant: "negative",
		},
		"duplicate keys": {
			yaml:    "stations:\n  - code: KDEN\n    leds: [0]\n  - code: KDEN\n    leds: [1]\n",
			errWant: "duplicate station key",
		},
		"index owned twice": {
			yaml:    "stations:\n  - code: KDEN\n    leds: [3]\nlegend:\n  - name: VFR\n    index: 3\n",
			errWant: "LED index 3",
		},
		"unknown category": {
			yaml:    "stations:\n  - code: KDEN\n    leds: [0]\ncategories:\n  SVFR: green\n",
			errWant: "unknown flight category",
		},
		"bad palette hex": {
			yaml:    "stations:\n  - code: KDEN\n    leds: [0]\npalette:\n  orange: zzz\n",
			errWant: "palette orange",
		},
		"unresolvable legend": {
			yaml:    "stations:\n  - code: KDEN\n    leds: [0]\nlegend:\n  - name: mystery\n    index: 1\n",
			errWant: "legend mystery",
		},
		"bad dimming time": {
			yaml:    "stations:\n  - code: KDEN\n    leds: [0]\ndimming:\n  enabled: true\n  day_at: \"7am\"\n  night_at: \"21:30\"\n",
			errWant: "dimming day_at",
		},
		"bad brightness": {
			yaml:    "stations:\n  - code: KDEN\n    leds: [0]\nsettings:\n  brightness: 300\n",
			errWant: "brightness",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			m, err := LoadMap(writeMap(t, tc.yaml))
			if err == nil {
				_, err = m.Resolve()
			}
			if err == nil {
				t.Fatalf("accepted invalid map:\n%s", tc.yaml)
			}
			if !strings.Contains(err.Error(), tc.errWant) {
				t.Fatalf("error %q does not mention %q", err, tc.errWant)
			}
		})
	}
}

func TestDurationForms(t *testing.T) {
	m, err := LoadMap(writeMap(t, `
stations:
  - code: KDEN
    leds: [0]
settings:
  fade_duration: 1.5
  wind_duration: 90s
  metar_refresh_rate: 2m
`))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if got := m.Settings.FadeDuration.Std(); got != 1500*time.Millisecond {
		t.Errorf("fractional seconds: got %v", got)
	}
	if got := m.Settings.WindDuration.Std(); got != 90*time.Second {
		t.Errorf("duration string: got %v", got)
	}
	if got := m.Settings.MetarRefreshRate.Std(); got != 2*time.Minute {
		t.Errorf("minutes string: got %v", got)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	_, err := LoadMap(writeMap(t, "stations:\n  - code: KDEN\n    leds: [0]\nsettings:\n  fade_duration: soonish\n"))
	if err == nil {
		t.Fatal("accepted an unparseable duration")
	}
}
