package display

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ScottSturdivant/rpi-metar/internal/airports"
	"github.com/ScottSturdivant/rpi-metar/internal/telemetry"
	"github.com/ScottSturdivant/rpi-metar/internal/wx"
)

// Fetcher supplies one decoded observation per station, naming the source
// that produced it.
type Fetcher interface {
	Observe(ctx context.Context, station string) (wx.Observation, string, error)
}

// Reporter receives best-effort fetch and status records.
type Reporter interface {
	ReportFetch(rec telemetry.FetchRecord)
	ReportStatus(rec telemetry.StatusRecord)
}

// result carries one completed fetch from a worker back to the loop.
type result struct {
	cycle    string
	code     string
	obs      wx.Observation
	provider string
	err      error
}

// brightnessCommand adjusts output brightness: a relative delta from the
// rotary encoder or an absolute level from the dimmer schedule.
type brightnessCommand struct {
	delta    int
	level    uint8
	absolute bool
}

// Options configures a Loop.
type Options struct {
	Stations []*airports.Airport
	Chain    Fetcher
	Renderer *Renderer
	Reporter Reporter
	Log      *slog.Logger

	// RefreshRate is the interval between fetch cycles.
	RefreshRate time.Duration
	// TickInterval is the fixed render cadence.
	TickInterval time.Duration
	// FetchTimeout bounds one station's full trip through the source chain.
	FetchTimeout time.Duration
	// MaxConcurrent bounds simultaneous fetches per refresh cycle.
	MaxConcurrent int
	// Brightness is the initial output level.
	Brightness uint8
}

func (o Options) withDefaults() Options {
	if o.RefreshRate <= 0 {
		o.RefreshRate = 5 * time.Minute
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 40 * time.Millisecond
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 8
	}
	return o
}

// Loop owns the station state collection and drives both cadences: refresh
// cycles that fan fetches out to workers, and the fixed render tick. All
// station mutation happens on the loop goroutine; workers only send
// completed results over a channel, so a slow or hung fetch can never
// stall rendering.
type Loop struct {
	stations []*airports.Airport
	byCode   map[string][]*airports.Airport
	chain    Fetcher
	renderer *Renderer
	reporter Reporter
	log      *slog.Logger

	refreshRate   time.Duration
	tickInterval  time.Duration
	fetchTimeout  time.Duration
	maxConcurrent int

	brightness uint8
	commands   chan brightnessCommand
	results    chan result
}

func NewLoop(opts Options) *Loop {
	opts = opts.withDefaults()

	byCode := make(map[string][]*airports.Airport)
	for _, st := range opts.Stations {
		byCode[st.Code] = append(byCode[st.Code], st)
	}

	return &Loop{
		stations:      opts.Stations,
		byCode:        byCode,
		chain:         opts.Chain,
		renderer:      opts.Renderer,
		reporter:      opts.Reporter,
		log:           opts.Log,
		refreshRate:   opts.RefreshRate,
		tickInterval:  opts.TickInterval,
		fetchTimeout:  opts.FetchTimeout,
		maxConcurrent: opts.MaxConcurrent,
		brightness:    opts.Brightness,
		commands:      make(chan brightnessCommand, 16),
		results:       make(chan result, len(opts.Stations)+1),
	}
}

// Adjust nudges brightness by delta on the next frame. Never blocks; if
// the loop is behind, the nudge is dropped.
func (l *Loop) Adjust(delta int) {
	select {
	case l.commands <- brightnessCommand{delta: delta}:
	default:
	}
}

// SetBrightness switches to an absolute level on the next frame.
func (l *Loop) SetBrightness(level uint8) {
	select {
	case l.commands <- brightnessCommand{level: level, absolute: true}:
	default:
	}
}

// Run drives both cadences until ctx is canceled, then writes one final
// frame blanking all station-owned indices and returns ctx's error.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("display loop started",
		"stations", len(l.stations),
		"codes", len(l.byCode),
		"refresh_rate", l.refreshRate,
		"tick", l.tickInterval,
	)

	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()
	refresh := time.NewTicker(l.refreshRate)
	defer refresh.Stop()

	// First refresh immediately at startup.
	go l.refreshAll(ctx)

	for {
		select {
		case <-ctx.Done():
			l.renderer.Blank(l.stations, l.brightness)
			l.log.Info("display loop stopped")
			return ctx.Err()
		case <-refresh.C:
			go l.refreshAll(ctx)
		case res := <-l.results:
			l.apply(res, time.Now())
		case cmd := <-l.commands:
			l.applyBrightness(cmd)
		case now := <-ticker.C:
			l.renderer.Render(l.stations, now, l.brightness)
		}
	}
}

// refreshAll runs one fetch cycle: exactly one fetch per distinct airport
// code, with bounded concurrency and a per-fetch timeout. Results stream
// back to the loop as they complete.
func (l *Loop) refreshAll(ctx context.Context) {
	cycle := uuid.NewString()
	l.log.Debug("refresh cycle started", "cycle", cycle, "codes", len(l.byCode))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxConcurrent)
	for code := range l.byCode {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, l.fetchTimeout)
			defer cancel()

			obs, provider, err := l.chain.Observe(fctx, code)
			select {
			case l.results <- result{cycle: cycle, code: code, obs: obs, provider: provider, err: err}:
			case <-ctx.Done():
			}
			return nil
		})
	}
	g.Wait()
	l.log.Debug("refresh cycle finished", "cycle", cycle)
}

// apply folds one fetch result into every station keyed by its code.
// Runs on the loop goroutine, between render ticks.
func (l *Loop) apply(res result, now time.Time) {
	group := l.byCode[res.code]
	if len(group) == 0 {
		return
	}

	if res.err != nil {
		for _, st := range group {
			st.Fail(now)
		}
		l.log.Warn("station refresh failed",
			"station", res.code,
			"failures", group[0].Failures(),
			"degraded", group[0].Degraded(),
			"error", res.err,
		)
		l.report(res, group[0], now)
		return
	}

	for _, st := range group {
		st.Update(res.obs, now)
	}
	l.log.Info("station updated",
		"station", res.code,
		"source", res.provider,
		"category", res.obs.Category,
		"wind_kt", res.obs.WindSpeed,
		"gust_kt", res.obs.WindGust,
		"thunderstorm", res.obs.Thunderstorm,
		"color", group[0].Target(),
	)
	l.report(res, group[0], now)
}

func (l *Loop) report(res result, st *airports.Airport, now time.Time) {
	if l.reporter == nil {
		return
	}

	rec := telemetry.FetchRecord{
		Cycle:     res.cycle,
		Station:   res.code,
		Timestamp: now,
	}
	if res.err != nil {
		rec.Error = res.err.Error()
	} else {
		rec.Provider = res.provider
		rec.Category = string(res.obs.Category)
		rec.WindSpeedKt = res.obs.WindSpeed
		rec.WindGustKt = res.obs.WindGust
		rec.Thunderstorm = res.obs.Thunderstorm
		rec.Color = st.Target().String()
	}
	l.reporter.ReportFetch(rec)

	l.reporter.ReportStatus(telemetry.StatusRecord{
		Station:   res.code,
		State:     st.State(now).String(),
		Failures:  st.Failures(),
		Color:     st.Target().String(),
		Timestamp: now,
	})
}

func (l *Loop) applyBrightness(cmd brightnessCommand) {
	if cmd.absolute {
		l.brightness = cmd.level
	} else {
		v := int(l.brightness) + cmd.delta
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		l.brightness = uint8(v)
	}
	l.log.Debug("brightness changed", "level", l.brightness)
}
