package leds

import (
	"fmt"
	"math"
	"strings"
)

// Color is an 8-bit RGB triple. Wire ordering for strips that want GRB or
// BGR is the driver's concern, not the caller's.
type Color struct {
	R, G, B uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	Green   = Color{R: 0, G: 255, B: 0}
	Red     = Color{R: 255, G: 0, B: 0}
	Blue    = Color{R: 0, G: 0, B: 255}
	Magenta = Color{R: 255, G: 0, B: 255}
	Yellow  = Color{R: 255, G: 255, B: 0}
	White   = Color{R: 255, G: 255, B: 255}
	Orange  = Color{R: 255, G: 165, B: 0}
	Off     = Color{}
)

// Palette maps color names to values. Configuration may add names or
// override the defaults.
type Palette map[string]Color

func DefaultPalette() Palette {
	return Palette{
		"green":   Green,
		"red":     Red,
		"blue":    Blue,
		"magenta": Magenta,
		"yellow":  Yellow,
		"white":   White,
		"orange":  Orange,
		"off":     Off,
		"black":   Off,
	}
}

// Resolve looks up a palette name, falling back to hex notation so config
// values may be either ("green" or "#00ff00").
func (p Palette) Resolve(s string) (Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if c, ok := p[name]; ok {
		return c, nil
	}
	c, err := ParseHex(name)
	if err != nil {
		return Color{}, fmt.Errorf("unknown color %q", s)
	}
	return c, nil
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	var c Color
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c, nil
}

// Lerp blends a toward b by t in [0,1]. Out-of-range t is clamped.
func Lerp(a, b Color, t float64) Color {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	blend := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return Color{
		R: blend(a.R, b.R),
		G: blend(a.G, b.G),
		B: blend(a.B, b.B),
	}
}
