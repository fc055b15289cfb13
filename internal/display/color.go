package display

import "fmt"

// Color is a 16-bit RGB565 color, the native format of the LCD panel.
// It implements image/color.Color so framebuffers can draw with it directly.
type Color uint16

// Panel palette
const (
	Black  Color = 0x0000
	White  Color = 0xFFFF
	Blue   Color = 0x001F
	Green  Color = 0x07E0
	Red    Color = 0xF800
	Yellow Color = 0xFFE0
	Orange Color = 0xFD20
	Purple Color = 0x780F
	Navy   Color = 0x000F
	Maroon Color = 0x7800
	Olive  Color = 0x7BE0
	Grey   Color = 0x8410
)

// RGB8 expands the color to 8 bits per channel
func (c Color) RGB8() (r, g, b uint8) {
	r5 := uint8(c>>11) & 0x1F
	g6 := uint8(c>>5) & 0x3F
	b5 := uint8(c) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// RGBA implements color.Color
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB8()
	r = uint32(r8) * 0x101
	g = uint32(g8) * 0x101
	b = uint32(b8) * 0x101
	return r, g, b, 0xFFFF
}

// Hex returns the color as #rrggbb
func (c Color) Hex() string {
	r, g, b := c.RGB8()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// FromRGB packs 8-bit channels into RGB565
func FromRGB(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// TextOn picks black or white text for readability on bg
func TextOn(bg Color) Color {
	r, g, b := bg.RGB8()
	// integer approximation of relative luminance
	lum := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
	if lum > 160 {
		return Black
	}
	return White
}
