package harness

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/animdiff/internal/attr"
	"github.com/roach88/animdiff/internal/scene"
)

// IntAttr is an integer attribute: either a constant or a linear ramp that
// holds Base up to frame From and then changes by Step per frame.
//
//	x: 10
//	x: {base: 10, step: 2, from: 4}
type IntAttr struct {
	Base int `yaml:"base" json:"base"`
	Step int `yaml:"step,omitempty" json:"step,omitempty"`
	From int `yaml:"from,omitempty" json:"from,omitempty"`
	ramp bool
}

// Const returns a constant IntAttr.
func Const(n int) IntAttr {
	return IntAttr{Base: n}
}

// Ramp returns a linear IntAttr.
func Ramp(base, step, from int) IntAttr {
	return IntAttr{Base: base, Step: step, From: from, ramp: true}
}

type rampFields struct {
	Base int `yaml:"base" json:"base"`
	Step int `yaml:"step" json:"step"`
	From int `yaml:"from" json:"from"`
}

// UnmarshalYAML accepts a scalar or a {base, step, from} mapping.
func (a *IntAttr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		*a = Const(n)
		return nil
	}
	// Node.Decode does not inherit KnownFields from the outer decoder.
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			switch key.Value {
			case "base", "step", "from":
			default:
				return fmt.Errorf("line %d: field %s not found in int attribute", key.Line, key.Value)
			}
		}
	}
	var r rampFields
	if err := node.Decode(&r); err != nil {
		return err
	}
	*a = Ramp(r.Base, r.Step, r.From)
	return nil
}

// UnmarshalJSON accepts a number or a {base, step, from} object.
func (a *IntAttr) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Const(n)
		return nil
	}
	var r rampFields
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return fmt.Errorf("int attribute must be an integer or {base, step, from}: %w", err)
	}
	*a = Ramp(r.Base, r.Step, r.From)
	return nil
}

// Timeline converts the attribute.
func (a IntAttr) Timeline() attr.Timeline[int] {
	if !a.ramp {
		return attr.Const(a.Base)
	}
	return attr.Linear(a.Base, a.Step, a.From)
}

// ShapeSpec declares exactly one geometry kind.
type ShapeSpec struct {
	Rect    *RectSpec    `yaml:"rect,omitempty" json:"rect,omitempty"`
	Ellipse *EllipseSpec `yaml:"ellipse,omitempty" json:"ellipse,omitempty"`
	Polygon *PolygonSpec `yaml:"polygon,omitempty" json:"polygon,omitempty"`
	Text    *TextSpec    `yaml:"text,omitempty" json:"text,omitempty"`
	Group   []ChildSpec  `yaml:"group,omitempty" json:"group,omitempty"`
}

type RectSpec struct {
	X      IntAttr `yaml:"x" json:"x"`
	Y      IntAttr `yaml:"y" json:"y"`
	Width  IntAttr `yaml:"width" json:"width"`
	Height IntAttr `yaml:"height" json:"height"`
}

type EllipseSpec struct {
	CX IntAttr `yaml:"cx" json:"cx"`
	CY IntAttr `yaml:"cy" json:"cy"`
	RX IntAttr `yaml:"rx" json:"rx"`
	RY IntAttr `yaml:"ry" json:"ry"`
}

// PolygonSpec holds flattened x,y pairs.
type PolygonSpec struct {
	Points []IntAttr `yaml:"points" json:"points"`
}

type TextSpec struct {
	X       IntAttr `yaml:"x" json:"x"`
	Y       IntAttr `yaml:"y" json:"y"`
	Content string  `yaml:"content" json:"content"`
}

// ChildSpec is a named member of a group.
type ChildSpec struct {
	Name  string     `yaml:"name" json:"name"`
	Shape ShapeSpec  `yaml:"shape" json:"shape"`
	Style *StyleSpec `yaml:"style,omitempty" json:"style,omitempty"`
}

// StyleSpec declares style attributes. Unset attributes are never emitted.
type StyleSpec struct {
	Fill        *string  `yaml:"fill,omitempty" json:"fill,omitempty"`
	Stroke      *string  `yaml:"stroke,omitempty" json:"stroke,omitempty"`
	StrokeWidth *IntAttr `yaml:"stroke_width,omitempty" json:"stroke_width,omitempty"`
	FontSize    *IntAttr `yaml:"font_size,omitempty" json:"font_size,omitempty"`
}

func (s *ShapeSpec) kinds() []scene.Kind {
	var ks []scene.Kind
	if s.Rect != nil {
		ks = append(ks, scene.KindRect)
	}
	if s.Ellipse != nil {
		ks = append(ks, scene.KindEllipse)
	}
	if s.Polygon != nil {
		ks = append(ks, scene.KindPolygon)
	}
	if s.Text != nil {
		ks = append(ks, scene.KindText)
	}
	if s.Group != nil {
		ks = append(ks, scene.KindGroup)
	}
	return ks
}

// validate checks that exactly one kind is declared and the shape builds.
func (s *ShapeSpec) validate() error {
	_, err := s.Shape()
	return err
}

// Shape builds the scene shape.
func (s *ShapeSpec) Shape() (scene.Shape, error) {
	ks := s.kinds()
	if len(ks) != 1 {
		return nil, fmt.Errorf("shape must declare exactly one of rect, ellipse, polygon, text, group (got %d)", len(ks))
	}

	var shape scene.Shape
	switch ks[0] {
	case scene.KindRect:
		r := s.Rect
		shape = scene.Rect{X: r.X.Timeline(), Y: r.Y.Timeline(), Width: r.Width.Timeline(), Height: r.Height.Timeline()}
	case scene.KindEllipse:
		e := s.Ellipse
		shape = scene.Ellipse{CX: e.CX.Timeline(), CY: e.CY.Timeline(), RX: e.RX.Timeline(), RY: e.RY.Timeline()}
	case scene.KindPolygon:
		pts := make([]attr.Timeline[int], len(s.Polygon.Points))
		for i, p := range s.Polygon.Points {
			pts[i] = p.Timeline()
		}
		shape = scene.Polygon{Points: pts}
	case scene.KindText:
		t := s.Text
		shape = scene.Text{X: t.X.Timeline(), Y: t.Y.Timeline(), Content: attr.Const(t.Content)}
	case scene.KindGroup:
		g := scene.NewGroup()
		for i, c := range s.Group {
			child, err := c.Shape.Shape()
			if err != nil {
				return nil, fmt.Errorf("group[%d]: %w", i, err)
			}
			if err := g.Add(c.Name, child, c.Style.Style()); err != nil {
				return nil, fmt.Errorf("group[%d]: %w", i, err)
			}
		}
		shape = g
	}

	if err := scene.Validate(shape); err != nil {
		return nil, err
	}
	return shape, nil
}

// Style builds the scene style. A nil spec is the empty style.
func (s *StyleSpec) Style() scene.Style {
	var st scene.Style
	if s == nil {
		return st
	}
	if s.Fill != nil {
		tl := attr.Const(*s.Fill)
		st.Fill = &tl
	}
	if s.Stroke != nil {
		tl := attr.Const(*s.Stroke)
		st.Stroke = &tl
	}
	if s.StrokeWidth != nil {
		tl := s.StrokeWidth.Timeline()
		st.StrokeWidth = &tl
	}
	if s.FontSize != nil {
		tl := s.FontSize.Timeline()
		st.FontSize = &tl
	}
	return st
}
