package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ScottSturdivant/rpi-metar/internal/wx"
)

// ErrAllSourcesFailed reports that no provider produced a usable report for
// a station this cycle.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Chain tries providers in order until one yields a parseable report.
// Individual provider failures are logged, never propagated; only total
// failure is reported.
type Chain struct {
	providers []Provider
	log       *slog.Logger
}

func NewChain(providers []Provider, log *slog.Logger) *Chain {
	return &Chain{providers: providers, log: log}
}

// Observe fetches and decodes a report for the station, returning the
// observation and the name of the provider that supplied it.
func (c *Chain) Observe(ctx context.Context, station string) (wx.Observation, string, error) {
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return wx.Observation{}, "", fmt.Errorf("%w: %v", ErrAllSourcesFailed, err)
		}

		raw, err := p.Fetch(ctx, station)
		if err != nil {
			c.log.Warn("source failed",
				"source", p.Name(),
				"station", station,
				"error", err,
			)
			continue
		}

		obs, err := wx.Parse(raw)
		if err != nil {
			c.log.Warn("source returned undecodable report",
				"source", p.Name(),
				"station", station,
				"error", err,
			)
			continue
		}

		c.log.Debug("report fetched",
			"source", p.Name(),
			"station", station,
			"category", obs.Category,
		)
		return obs, p.Name(), nil
	}
	return wx.Observation{}, "", fmt.Errorf("%w: station %s", ErrAllSourcesFailed, station)
}
