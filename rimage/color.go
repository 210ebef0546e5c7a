package rimage

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Named colors usable in configs.
var (
	Red    = color.RGBA{R: 255, A: 255}
	Green  = color.RGBA{G: 255, A: 255}
	Blue   = color.RGBA{B: 255, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black  = color.RGBA{A: 255}
	Yellow = color.RGBA{R: 255, G: 255, A: 255}
	Cyan   = color.RGBA{G: 255, B: 255, A: 255}
	Purple = color.RGBA{R: 255, B: 255, A: 255}

	namedColors = map[string]color.RGBA{
		"red":    Red,
		"green":  Green,
		"blue":   Blue,
		"white":  White,
		"black":  Black,
		"yellow": Yellow,
		"cyan":   Cyan,
		"purple": Purple,
	}
)

// ParseColor reads a color given by name ("green") or as hex ("#00ff00").
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	cc, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "couldn't parse color %q", s)
	}
	r, g, b := cc.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Hex formats c as #rrggbb.
func Hex(c color.Color) string {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("#%.2x%.2x%.2x", rgba.R, rgba.G, rgba.B)
}
