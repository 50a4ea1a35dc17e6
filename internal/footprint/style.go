package footprint

import (
	"fmt"
	"strings"

	"github.com/gogpu/gg"
)

// Default outline colours.
const (
	DefaultColor         = "#00aa00"
	DefaultSelectedColor = "#ff0e42"
)

// Style holds the outline colours for normal and selected segments.
type Style struct {
	Color    gg.RGBA
	Selected gg.RGBA
}

// DefaultStyle returns the built-in green/red style.
func DefaultStyle() Style {
	return Style{Color: gg.Hex(DefaultColor), Selected: gg.Hex(DefaultSelectedColor)}
}

// ParseStyle builds a Style from two "#rrggbb" strings.
func ParseStyle(color, selected string) (Style, error) {
	c, err := parseColor(color)
	if err != nil {
		return Style{}, fmt.Errorf("segment color: %w", err)
	}
	sel, err := parseColor(selected)
	if err != nil {
		return Style{}, fmt.Errorf("selected color: %w", err)
	}
	return Style{Color: c, Selected: sel}, nil
}

// For picks the colour for a segment in the given selection state.
func (s Style) For(selected bool) gg.RGBA {
	if selected {
		return s.Selected
	}
	return s.Color
}

// parseColor rejects strings gg.Hex would silently turn into black.
func parseColor(s string) (gg.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return gg.RGBA{}, fmt.Errorf("%q is not a hex colour", s)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return gg.RGBA{}, fmt.Errorf("%q is not a hex colour", s)
		}
	}
	return gg.Hex(hex), nil
}
