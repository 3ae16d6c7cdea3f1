package leds

import "log/slog"

// consoleStrip stands in for real hardware during development: frames are
// reported through the logger instead of a bus.
type consoleStrip struct {
	log    *slog.Logger
	pixels []Color
}

func OpenConsole(numPixels int, log *slog.Logger) Strip {
	return &consoleStrip{
		log:    log,
		pixels: make([]Color, numPixels),
	}
}

func (s *consoleStrip) Len() int {
	return len(s.pixels)
}

func (s *consoleStrip) SetPixel(index int, c Color) {
	if index < 0 || index >= len(s.pixels) {
		return
	}
	s.pixels[index] = c
}

func (s *consoleStrip) Show(brightness uint8) error {
	lit := 0
	for _, c := range s.pixels {
		if c != (Color{}) {
			lit++
		}
	}
	s.log.Debug("frame flushed", "pixels", len(s.pixels), "lit", lit, "brightness", brightness)
	return nil
}

func (s *consoleStrip) Close() error {
	return nil
}
