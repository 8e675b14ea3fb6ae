package scene

import (
	"fmt"

	"github.com/roach88/animdiff/internal/attr"
)

// Kind identifies a geometry kind. It is emitted as the "type" key.
type Kind string

// Geometry kinds.
const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindPolygon Kind = "polygon"
	KindText    Kind = "text"
	KindGroup   Kind = "group"
)

// ValidKinds lists the supported kinds.
var ValidKinds = map[Kind]bool{
	KindRect:    true,
	KindEllipse: true,
	KindPolygon: true,
	KindText:    true,
	KindGroup:   true,
}

// Shape is the sealed geometry interface. Only Rect, Ellipse, Polygon, Text
// and Group implement it.
type Shape interface {
	Kind() Kind
	geometry(frame int) []Attr
	isConst() bool
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height attr.Timeline[int]
}

// NewRect returns a constant rectangle.
func NewRect(x, y, width, height int) Rect {
	return Rect{X: attr.Const(x), Y: attr.Const(y), Width: attr.Const(width), Height: attr.Const(height)}
}

func (Rect) Kind() Kind { return KindRect }

func (r Rect) geometry(frame int) []Attr {
	return []Attr{
		intAttr("x", r.X.At(frame)),
		intAttr("y", r.Y.At(frame)),
		intAttr("width", r.Width.At(frame)),
		intAttr("height", r.Height.At(frame)),
	}
}

func (r Rect) isConst() bool {
	return r.X.IsConst() && r.Y.IsConst() && r.Width.IsConst() && r.Height.IsConst()
}

// Ellipse is an axis-aligned ellipse given by centre and radii.
type Ellipse struct {
	CX, CY, RX, RY attr.Timeline[int]
}

// NewEllipse returns a constant ellipse.
func NewEllipse(cx, cy, rx, ry int) Ellipse {
	return Ellipse{CX: attr.Const(cx), CY: attr.Const(cy), RX: attr.Const(rx), RY: attr.Const(ry)}
}

func (Ellipse) Kind() Kind { return KindEllipse }

func (e Ellipse) geometry(frame int) []Attr {
	return []Attr{
		intAttr("cx", e.CX.At(frame)),
		intAttr("cy", e.CY.At(frame)),
		intAttr("rx", e.RX.At(frame)),
		intAttr("ry", e.RY.At(frame)),
	}
}

func (e Ellipse) isConst() bool {
	return e.CX.IsConst() && e.CY.IsConst() && e.RX.IsConst() && e.RY.IsConst()
}

// Polygon is a closed polygon. Points holds flattened x,y pairs.
type Polygon struct {
	Points []attr.Timeline[int]
}

// NewPolygon returns a constant polygon from flattened x,y pairs.
func NewPolygon(points ...int) Polygon {
	return Polygon{Points: attr.Ints(points...)}
}

func (Polygon) Kind() Kind { return KindPolygon }

func (p Polygon) geometry(frame int) []Attr {
	pts := make([]int, len(p.Points))
	for i, tl := range p.Points {
		pts[i] = tl.At(frame)
	}
	return []Attr{intsAttr("points", pts)}
}

func (p Polygon) isConst() bool {
	for _, tl := range p.Points {
		if !tl.IsConst() {
			return false
		}
	}
	return true
}

// Text is a text label anchored at x,y.
type Text struct {
	X, Y    attr.Timeline[int]
	Content attr.Timeline[string]
}

// NewText returns a constant text label.
func NewText(x, y int, content string) Text {
	return Text{X: attr.Const(x), Y: attr.Const(y), Content: attr.Const(content)}
}

func (Text) Kind() Kind { return KindText }

func (t Text) geometry(frame int) []Attr {
	return []Attr{
		intAttr("x", t.X.At(frame)),
		intAttr("y", t.Y.At(frame)),
		textAttr("text", t.Content.At(frame)),
	}
}

func (t Text) isConst() bool {
	return t.X.IsConst() && t.Y.IsConst() && t.Content.IsConst()
}

// Group composes named children, each with its own style.
// Children keep insertion order.
type Group struct {
	children []member
}

type member struct {
	name  string
	shape Shape
	style Style
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{}
}

// Add appends a child. Names must be valid and unique within the group.
func (g *Group) Add(name string, shape Shape, style Style) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if shape == nil {
		return fmt.Errorf("%w: child %q has no shape", ErrInvalidShape, name)
	}
	for _, m := range g.children {
		if m.name == name {
			return fmt.Errorf("%w: %q", ErrDuplicateChild, name)
		}
	}
	g.children = append(g.children, member{name: name, shape: shape, style: style})
	return nil
}

// MustAdd is like Add but panics on error. Use it for literal scene setup.
func (g *Group) MustAdd(name string, shape Shape, style Style) *Group {
	if err := g.Add(name, shape, style); err != nil {
		panic(err)
	}
	return g
}

// Len returns the number of children.
func (g *Group) Len() int {
	return len(g.children)
}

func (*Group) Kind() Kind { return KindGroup }

func (*Group) geometry(int) []Attr { return nil }

func (g *Group) isConst() bool {
	for _, m := range g.children {
		if !m.shape.isConst() || !m.style.isConst() {
			return false
		}
	}
	return true
}

// Validate checks a shape can be sampled.
func Validate(s Shape) error {
	switch v := s.(type) {
	case nil:
		return fmt.Errorf("%w: nil shape", ErrInvalidShape)
	case Polygon:
		if len(v.Points)%2 != 0 {
			return fmt.Errorf("%w: polygon has odd coordinate count %d", ErrInvalidShape, len(v.Points))
		}
	case *Group:
		if v == nil {
			return fmt.Errorf("%w: nil group", ErrInvalidShape)
		}
		for _, m := range v.children {
			if err := Validate(m.shape); err != nil {
				return fmt.Errorf("child %q: %w", m.name, err)
			}
		}
	}
	return nil
}
