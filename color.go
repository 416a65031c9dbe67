package imm

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// RGBA is a straight-alpha color with float components in [0, 1]. Values
// outside that range are clamped when packed into a Vertex.
type RGBA struct {
	R, G, B, A float64
}

// RGBA implements color.Color.
func (c RGBA) RGBA() (r, g, b, a uint32) {
	p := c.Bytes()
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}.RGBA()
}

// Bytes packs the color into the four unorm8 channels of Vertex.Color.
func (c RGBA) Bytes() [4]uint8 {
	return [4]uint8{unorm8(c.R), unorm8(c.G), unorm8(c.B), unorm8(c.A)}
}

func unorm8(v float64) uint8 {
	return uint8(min(max(v*255+0.5, 0), 255))
}

// GPU converts the color to a pass clear value.
func (c RGBA) GPU() gputypes.Color {
	return gputypes.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// FromColor converts any color.Color, un-premultiplying it.
func FromColor(c color.Color) RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fromBytes(n.R, n.G, n.B, n.A)
}

func fromBytes(r, g, b, a uint8) RGBA {
	return RGBA{float64(r) / 255, float64(g) / 255, float64(b) / 255, float64(a) / 255}
}

// RGB returns an opaque color.
func RGB(r, g, b float64) RGBA {
	return RGBA{R: r, G: g, B: b, A: 1}
}

// Hex parses "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa", with or without the
// leading '#'. Anything else yields opaque black.
func Hex(s string) RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 || len(s) == 4 {
		long := make([]byte, 0, 2*len(s))
		for i := range len(s) {
			long = append(long, s[i], s[i])
		}
		s = string(long)
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return Black
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Black
	}
	return fromBytes(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v))
}

// Named colors used by the demo and tests.
var (
	Black       = RGB(0, 0, 0)
	White       = RGB(1, 1, 1)
	Red         = RGB(1, 0, 0)
	Green       = RGB(0, 1, 0)
	Blue        = RGB(0, 0, 1)
	Yellow      = RGB(1, 1, 0)
	Transparent = RGBA{}
)
