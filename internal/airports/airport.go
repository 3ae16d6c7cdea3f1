package airports

import (
	"fmt"
	"strings"
	"time"

	"github.com/ScottSturdivant/rpi-metar/internal/leds"
	"github.com/ScottSturdivant/rpi-metar/internal/wx"
)

// State is the derived condition of a station's display machine.
type State int

const (
	StateNoData State = iota
	StateNormal
	StateOverlayActive
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateNoData:
		return "no_data"
	case StateNormal:
		return "normal"
	case StateOverlayActive:
		return "overlay_active"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Airport is the display state for one configured station key. One airport
// code may back several Airport instances under distinct keys; each owns
// its LED indices and all of them render that code's weather.
//
// An Airport is owned by the display loop and advanced from exactly one
// goroutine; methods are not safe for concurrent use.
type Airport struct {
	Code string
	Key  string
	LEDs []int

	policy *Policy

	obs      *wx.Observation
	prev     leds.Color
	target   leds.Color
	progress float64
	overlay  *Overlay
	failures int
	degraded bool
	lastTick time.Time
}

// New creates the state for one station key. Until the first report
// arrives the station paints the UNKNOWN color with no fade.
func New(code, key string, ledIndices []int, policy *Policy) *Airport {
	code = strings.ToUpper(strings.TrimSpace(code))
	if key == "" {
		key = code
	}
	base, _ := policy.Resolve(nil, false)
	return &Airport{
		Code:     code,
		Key:      key,
		LEDs:     ledIndices,
		policy:   policy,
		prev:     base,
		target:   base,
		progress: 1,
	}
}

// Update applies a successfully fetched observation. The failure count
// resets and the fade re-targets; a qualifying observation also starts a
// fresh overlay.
func (a *Airport) Update(obs wx.Observation, now time.Time) {
	a.obs = &obs
	a.failures = 0
	a.degraded = false
	a.retarget(now)
}

// Fail records a refresh cycle on which every source failed for this
// station. Crossing the failure threshold degrades the display; short of
// that the prior displayed state is retained.
func (a *Airport) Fail(now time.Time) {
	a.failures++
	if a.failures > a.policy.FailureThreshold && !a.degraded {
		a.degraded = true
		a.overlay = nil
		a.retarget(now)
	}
}

// retarget recomputes the fade target and overlay from the current
// observation and degradation state. The fade restarts from the color on
// display right now, so re-targeting mid-fade stays smooth.
func (a *Airport) retarget(now time.Time) {
	base, kind := a.policy.Resolve(a.obs, a.degraded)
	a.prev = a.baseColor()
	a.target = base
	if a.policy.DoFade && a.policy.FadeDuration > 0 {
		a.progress = 0
	} else {
		a.progress = 1
	}

	// An expired overlay is dropped and a qualifying observation starts a
	// fresh one; an overlay still inside its window otherwise runs out.
	if a.overlay != nil && !a.overlay.ActiveAt(now) {
		a.overlay = nil
	}
	if kind != OverlayNone {
		a.overlay = &Overlay{Kind: kind, Started: now, Duration: a.policy.overlayDuration(kind)}
	}
}

// Tick advances fade and overlay timing to now and returns the color every
// LED of this station displays this frame. Fade progress moves by elapsed
// wall-clock time over the fade duration, so the tick interval never
// changes visible timing.
func (a *Airport) Tick(now time.Time) leds.Color {
	if a.lastTick.IsZero() {
		a.lastTick = now
	}
	elapsed := now.Sub(a.lastTick)
	a.lastTick = now

	if a.policy.DoFade && a.policy.FadeDuration > 0 {
		if a.progress < 1 {
			a.progress += float64(elapsed) / float64(a.policy.FadeDuration)
			if a.progress > 1 {
				a.progress = 1
			}
		}
	} else {
		a.progress = 1
	}

	if a.overlay != nil {
		if !a.overlay.ActiveAt(now) {
			a.overlay = nil
		} else if a.overlay.EffectPhaseAt(now) {
			return a.policy.EffectColor(a.overlay.Kind)
		}
	}
	return a.baseColor()
}

// baseColor is the station's non-overlay color at the current fade point.
func (a *Airport) baseColor() leds.Color {
	return leds.Lerp(a.prev, a.target, a.progress)
}

// State derives the machine state at now.
func (a *Airport) State(now time.Time) State {
	switch {
	case a.degraded:
		return StateDegraded
	case a.obs == nil:
		return StateNoData
	case a.overlay != nil && a.overlay.ActiveAt(now):
		return StateOverlayActive
	default:
		return StateNormal
	}
}

// Observation returns the latest decoded report, if any has arrived.
func (a *Airport) Observation() (wx.Observation, bool) {
	if a.obs == nil {
		return wx.Observation{}, false
	}
	return *a.obs, true
}

// Target is the color the station is fading toward.
func (a *Airport) Target() leds.Color { return a.target }

// Failures is the consecutive failed refresh cycle count.
func (a *Airport) Failures() int { return a.failures }

// Degraded reports whether the failure threshold has been crossed.
func (a *Airport) Degraded() bool { return a.degraded }
