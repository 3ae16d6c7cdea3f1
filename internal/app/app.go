package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ScottSturdivant/rpi-metar/internal/airports"
	"github.com/ScottSturdivant/rpi-metar/internal/config"
	"github.com/ScottSturdivant/rpi-metar/internal/display"
	"github.com/ScottSturdivant/rpi-metar/internal/encoder"
	"github.com/ScottSturdivant/rpi-metar/internal/leds"
	"github.com/ScottSturdivant/rpi-metar/internal/sources"
	"github.com/ScottSturdivant/rpi-metar/internal/telemetry"
)

// Run wires the panel together and drives it until ctx is canceled. The
// map file supplies the stations and legend; everything else comes from
// the environment config.
func Run(ctx context.Context, cfg config.Config) error {
	m, err := config.LoadMap(cfg.ConfigFile)
	if err != nil {
		return err
	}
	resolved, err := m.Resolve()
	if err != nil {
		return fmt.Errorf("map file %s: %w", cfg.ConfigFile, err)
	}

	slog.Info("initializing display",
		"config_file", cfg.ConfigFile,
		"stations", len(resolved.Stations),
		"sources", resolved.Sources,
		"led_driver", cfg.LEDDriver,
	)

	policy := buildPolicy(resolved)
	stations := make([]*airports.Airport, 0, len(resolved.Stations))
	for _, st := range resolved.Stations {
		stations = append(stations, airports.New(st.Code, st.Key, st.LEDs, policy))
	}

	providers, err := sources.Build(resolved.Sources, sources.Options{
		Timeout:    cfg.SourceTimeout,
		RetryCount: cfg.SourceRetries,
		BaseURL:    cfg.SourceBaseURL,
	})
	if err != nil {
		return err
	}
	chain := sources.NewChain(providers, slog.Default())

	strip, err := openStrip(cfg, resolved)
	if err != nil {
		return err
	}
	defer strip.Close()

	publisher := telemetry.NewPublisher(telemetry.Options{
		Enabled:  cfg.MQTTEnabled,
		Broker:   cfg.MQTTBroker,
		Port:     cfg.MQTTPort,
		ClientID: cfg.MQTTClientID,
	}, slog.Default())
	go func() {
		// Connect with retry and backoff; the display never waits on the
		// broker.
		if err := publisher.Connect(ctx); err != nil {
			slog.Warn("mqtt connect failed; running without telemetry", "error", err)
		}
	}()
	defer publisher.Disconnect()

	legend := make([]display.LegendEntry, 0, len(resolved.Legend))
	for _, le := range resolved.Legend {
		legend = append(legend, display.LegendEntry{Name: le.Name, Index: le.Index, Color: le.Color})
	}

	loop := display.NewLoop(display.Options{
		Stations:      stations,
		Chain:         chain,
		Renderer:      display.NewRenderer(strip, legend, slog.Default()),
		Reporter:      publisher,
		Log:           slog.Default(),
		RefreshRate:   resolved.Settings.MetarRefreshRate.Std(),
		FetchTimeout:  cfg.FetchTimeout,
		MaxConcurrent: cfg.MaxConcurrentFetches,
		Brightness:    uint8(*resolved.Settings.Brightness),
	})

	if cfg.EncoderEnabled {
		startEncoder(ctx, cfg, loop)
	}

	dimmer := display.NewDimmer(display.Schedule{
		Enabled:    resolved.Dimming.Enabled,
		DayAt:      resolved.Dimming.DayAt,
		NightAt:    resolved.Dimming.NightAt,
		DayLevel:   uint8(resolved.Dimming.DayLevel),
		NightLevel: uint8(resolved.Dimming.NightLevel),
	}, loop, slog.Default())
	if err := dimmer.Start(); err != nil {
		return err
	}
	defer dimmer.Stop()

	return loop.Run(ctx)
}

// startEncoder claims the rotary encoder pins and feeds detents into the
// loop as brightness steps. Missing hardware degrades to a fixed
// brightness instead of failing startup.
func startEncoder(ctx context.Context, cfg config.Config, loop *display.Loop) {
	enc, err := encoder.Open(encoder.Options{
		PinA: cfg.EncoderPinA,
		PinB: cfg.EncoderPinB,
	}, slog.Default())
	if err != nil {
		slog.Warn("rotary encoder unavailable; brightness control disabled", "error", err)
		return
	}

	go func() {
		if err := enc.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("encoder stopped", "error", err)
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case delta := <-enc.Events():
				loop.Adjust(delta * cfg.BrightnessStep)
			}
		}
	}()
}

func buildPolicy(r config.Resolved) *airports.Policy {
	s := r.Settings
	return &airports.Policy{
		Categories:        r.Categories,
		OffColor:          r.OffColor,
		OrangeColor:       r.OrangeColor,
		WindColor:         r.WindColor,
		LightningColor:    r.LightningColor,
		Wind:              *s.Wind,
		MaxWind:           s.MaxWind,
		WindDuration:      s.WindDuration.Std(),
		Lightning:         *s.Lightning,
		LightningDuration: s.LightningDuration.Std(),
		UnknownOff:        *s.UnknownOff,
		FailureThreshold:  config.DefaultFailureThreshold,
		DoFade:            *s.DoFade,
		FadeDuration:      s.FadeDuration.Std(),
	}
}

func openStrip(cfg config.Config, r config.Resolved) (leds.Strip, error) {
	n := stripLength(r)
	if cfg.LEDDriver == "console" {
		return leds.OpenConsole(n, slog.Default()), nil
	}
	return leds.OpenAPA102(leds.APA102Opts{
		Device:       cfg.SPIDevice,
		NumPixels:    n,
		DisableGamma: r.Settings.DisableGamma,
	})
}

// stripLength is the highest assigned LED index plus one.
func stripLength(r config.Resolved) int {
	max := 0
	for _, st := range r.Stations {
		for _, idx := range st.LEDs {
			if idx >= max {
				max = idx + 1
			}
		}
	}
	for _, le := range r.Legend {
		if le.Index >= max {
			max = le.Index + 1
		}
	}
	return max
}
