package leds

// Strip is the output device. SetPixel writes only the in-memory frame;
// nothing reaches the hardware until Show flushes it with a brightness level.
type Strip interface {
	Len() int
	SetPixel(index int, c Color)
	Show(brightness uint8) error
	Close() error
}

// scale8 scales v by level/255 with rounding.
func scale8(v, level uint8) uint8 {
	return uint8((uint16(v)*uint16(level) + 127) / 255)
}
