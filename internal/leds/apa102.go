package leds

import (
	"fmt"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/apa102"
	"periph.io/x/host/v3"
)

type APA102Opts struct {
	// SPI port name as known to the host, e.g. "SPI0.0". Empty selects the
	// first available port.
	Device       string
	NumPixels    int
	DisableGamma bool
}

type apa102Strip struct {
	port         spi.PortCloser
	dev          *apa102.Dev
	pixels       []Color
	buf          []byte
	disableGamma bool
}

// OpenAPA102 initializes the host, opens the SPI port and prepares the strip.
// Gamma correction and brightness are applied here at flush time, so the
// device itself is configured for raw passthrough.
func OpenAPA102(opts APA102Opts) (Strip, error) {
	if opts.NumPixels <= 0 {
		return nil, fmt.Errorf("apa102: pixel count must be positive, got %d", opts.NumPixels)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	port, err := spireg.Open(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", opts.Device, err)
	}

	o := apa102.DefaultOpts
	o.NumPixels = opts.NumPixels
	o.Intensity = 255
	o.Temperature = apa102.NeutralTemp

	dev, err := apa102.New(port, &o)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("apa102 init: %w", err)
	}

	return &apa102Strip{
		port:         port,
		dev:          dev,
		pixels:       make([]Color, opts.NumPixels),
		buf:          make([]byte, 3*opts.NumPixels),
		disableGamma: opts.DisableGamma,
	}, nil
}

func (s *apa102Strip) Len() int {
	return len(s.pixels)
}

func (s *apa102Strip) SetPixel(index int, c Color) {
	if index < 0 || index >= len(s.pixels) {
		return
	}
	s.pixels[index] = c
}

func (s *apa102Strip) Show(brightness uint8) error {
	for i, c := range s.pixels {
		r, g, b := c.R, c.G, c.B
		if !s.disableGamma {
			r, g, b = gamma[r], gamma[g], gamma[b]
		}
		s.buf[3*i+0] = scale8(r, brightness)
		s.buf[3*i+1] = scale8(g, brightness)
		s.buf[3*i+2] = scale8(b, brightness)
	}
	if _, err := s.dev.Write(s.buf); err != nil {
		return fmt.Errorf("strip write: %w", err)
	}
	return nil
}

// Close releases the SPI port. The panel keeps whatever frame was last
// flushed; the display loop is responsible for blanking before shutdown.
func (s *apa102Strip) Close() error {
	return s.port.Close()
}
