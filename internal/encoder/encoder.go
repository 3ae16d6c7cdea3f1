package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type pinID int

const (
	pinNone pinID = iota
	pinA
	pinB
)

// decoder tracks quadrature state across edge events. Kept apart from the
// pin plumbing so the detent logic runs without hardware. Consecutive
// events from the same pin are contact bounce and ignored. A full detent
// ends with both channels high; whichever channel rose last gives the
// direction.
type decoder struct {
	levA, levB bool
	last       pinID
}

func (d *decoder) step(id pinID, level bool) int {
	if id == pinA {
		d.levA = level
	} else {
		d.levB = level
	}

	if id == d.last {
		return 0
	}
	d.last = id

	if !level {
		return 0
	}
	if id == pinA && d.levB {
		return 1
	}
	if id == pinB && d.levA {
		return -1
	}
	return 0
}

// Options selects the two encoder channels by pin name (BCM numbering,
// e.g. "GPIO26").
type Options struct {
	PinA string
	PinB string
}

// Encoder reads a quadrature rotary encoder on two pulled-up GPIO pins and
// emits one value per detent: +1 clockwise, -1 counterclockwise.
type Encoder struct {
	pinA, pinB gpio.PinIO
	events     chan int
	log        *slog.Logger
}

// Open claims both pins with pull-ups and edge detection armed.
func Open(opts Options, log *slog.Logger) (*Encoder, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	a := gpioreg.ByName(opts.PinA)
	if a == nil {
		return nil, fmt.Errorf("no such pin %q", opts.PinA)
	}
	b := gpioreg.ByName(opts.PinB)
	if b == nil {
		return nil, fmt.Errorf("no such pin %q", opts.PinB)
	}

	if err := a.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configure %s: %w", opts.PinA, err)
	}
	if err := b.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configure %s: %w", opts.PinB, err)
	}

	return &Encoder{
		pinA:   a,
		pinB:   b,
		events: make(chan int, 16),
		log:    log,
	}, nil
}

// Events delivers decoded detents. Values are dropped, not queued, when
// the consumer lags.
func (e *Encoder) Events() <-chan int { return e.events }

// Run watches both pins and decodes edges until ctx is canceled.
func (e *Encoder) Run(ctx context.Context) error {
	edges := make(chan edge, 16)

	var wg sync.WaitGroup
	wg.Add(2)
	go e.watch(ctx, &wg, e.pinA, pinA, edges)
	go e.watch(ctx, &wg, e.pinB, pinB, edges)

	var dec decoder
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			e.halt()
			return ctx.Err()
		case ev := <-edges:
			delta := dec.step(ev.id, ev.level)
			if delta == 0 {
				continue
			}
			select {
			case e.events <- delta:
			default:
				e.log.Debug("encoder event dropped", "delta", delta)
			}
		}
	}
}

type edge struct {
	id    pinID
	level bool
}

// watch blocks on edge detection with a short timeout so cancellation is
// noticed even on a silent pin.
func (e *Encoder) watch(ctx context.Context, wg *sync.WaitGroup, pin gpio.PinIO, id pinID, edges chan<- edge) {
	defer wg.Done()
	for ctx.Err() == nil {
		if !pin.WaitForEdge(500 * time.Millisecond) {
			continue
		}
		ev := edge{id: id, level: pin.Read() == gpio.High}
		select {
		case edges <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Encoder) halt() {
	if err := e.pinA.Halt(); err != nil {
		e.log.Debug("halt pin failed", "pin", e.pinA.Name(), "error", err)
	}
	if err := e.pinB.Halt(); err != nil {
		e.log.Debug("halt pin failed", "pin", e.pinB.Name(), "error", err)
	}
}
