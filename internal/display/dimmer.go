package display

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// BrightnessSink receives absolute brightness levels.
type BrightnessSink interface {
	SetBrightness(level uint8)
}

// Schedule describes day/night dimming: at DayAt and NightAt (local
// wall-clock, "HH:MM") the sink is switched to the matching level.
type Schedule struct {
	Enabled    bool
	DayAt      string
	NightAt    string
	DayLevel   uint8
	NightLevel uint8
}

// Dimmer runs the dimming schedule against a brightness sink. The panel
// otherwise holds whatever level the encoder last selected.
type Dimmer struct {
	scheduler *gocron.Scheduler
	schedule  Schedule
	sink      BrightnessSink
	log       *slog.Logger
}

func NewDimmer(schedule Schedule, sink BrightnessSink, log *slog.Logger) *Dimmer {
	return &Dimmer{
		scheduler: gocron.NewScheduler(time.Local),
		schedule:  schedule,
		sink:      sink,
		log:       log,
	}
}

// Start registers both daily jobs and runs the scheduler in the
// background. A disabled schedule is a no-op.
func (d *Dimmer) Start() error {
	if !d.schedule.Enabled {
		return nil
	}

	_, err := d.scheduler.Every(1).Day().At(d.schedule.DayAt).Do(func() {
		d.log.Info("switching to day brightness", "level", d.schedule.DayLevel)
		d.sink.SetBrightness(d.schedule.DayLevel)
	})
	if err != nil {
		return fmt.Errorf("schedule day brightness at %q: %w", d.schedule.DayAt, err)
	}

	_, err = d.scheduler.Every(1).Day().At(d.schedule.NightAt).Do(func() {
		d.log.Info("switching to night brightness", "level", d.schedule.NightLevel)
		d.sink.SetBrightness(d.schedule.NightLevel)
	})
	if err != nil {
		return fmt.Errorf("schedule night brightness at %q: %w", d.schedule.NightAt, err)
	}

	d.scheduler.StartAsync()
	d.log.Info("dimming scheduled",
		"day_at", d.schedule.DayAt,
		"day_level", d.schedule.DayLevel,
		"night_at", d.schedule.NightAt,
		"night_level", d.schedule.NightLevel,
	)
	return nil
}

// Stop cancels any future dimming jobs.
func (d *Dimmer) Stop() {
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
}
