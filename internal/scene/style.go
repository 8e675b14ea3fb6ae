package scene

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/roach88/animdiff/internal/attr"
)

// Style holds the visual properties of a node. Nil fields are undeclared
// and never emitted.
type Style struct {
	Fill        *attr.Timeline[string]
	Stroke      *attr.Timeline[string]
	StrokeWidth *attr.Timeline[int]
	FontSize    *attr.Timeline[int]
}

// NewStyle returns a style with constant fill and stroke colours.
func NewStyle(fill, stroke string) Style {
	f := attr.Const(fill)
	s := attr.Const(stroke)
	return Style{Fill: &f, Stroke: &s}
}

// WithStrokeWidth returns a copy with a constant stroke width.
func (s Style) WithStrokeWidth(w int) Style {
	tl := attr.Const(w)
	s.StrokeWidth = &tl
	return s
}

// WithFontSize returns a copy with a constant font size.
func (s Style) WithFontSize(n int) Style {
	tl := attr.Const(n)
	s.FontSize = &tl
	return s
}

// IsZero reports whether no style attribute is declared.
func (s Style) IsZero() bool {
	return s.Fill == nil && s.Stroke == nil && s.StrokeWidth == nil && s.FontSize == nil
}

func (s Style) attrs(frame int) []Attr {
	var out []Attr
	if s.Fill != nil {
		out = append(out, colourAttr("fill", s.Fill.At(frame)))
	}
	if s.Stroke != nil {
		out = append(out, colourAttr("stroke", s.Stroke.At(frame)))
	}
	if s.StrokeWidth != nil {
		out = append(out, intAttr("strokeWidth", s.StrokeWidth.At(frame)))
	}
	if s.FontSize != nil {
		out = append(out, intAttr("fontSize", s.FontSize.At(frame)))
	}
	return out
}

func (s Style) isConst() bool {
	return (s.Fill == nil || s.Fill.IsConst()) &&
		(s.Stroke == nil || s.Stroke.IsConst()) &&
		(s.StrokeWidth == nil || s.StrokeWidth.IsConst()) &&
		(s.FontSize == nil || s.FontSize.IsConst())
}

// NormalizeColour canonicalises hex colours ("#F00" and "#ff0000" both become
// "#ff0000") so equal colours never produce a delta. Other strings ("none",
// named colours) pass through unchanged.
func NormalizeColour(s string) string {
	if c, ok := parseHex(s); ok {
		return c.Hex()
	}
	return s
}

func parseHex(s string) (colorful.Color, bool) {
	if !strings.HasPrefix(s, "#") || (len(s) != 4 && len(s) != 7) {
		return colorful.Color{}, false
	}
	c, err := colorful.Hex(strings.ToLower(s))
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}
