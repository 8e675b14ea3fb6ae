package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animdiff/internal/attr"
	"github.com/roach88/animdiff/internal/ir"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Car1"))
	assert.ErrorIs(t, ValidateName(""), ErrInvalidName)
	assert.ErrorIs(t, ValidateName("a/b"), ErrInvalidName)
}

func TestGroupAdd(t *testing.T) {
	g := NewGroup()
	require.NoError(t, g.Add("body", NewRect(0, 0, 10, 10), NewStyle("#fff", "#000")))

	err := g.Add("body", NewEllipse(1, 1, 1, 1), Style{})
	assert.ErrorIs(t, err, ErrDuplicateChild)

	err = g.Add("wheel/left", NewEllipse(1, 1, 1, 1), Style{})
	assert.ErrorIs(t, err, ErrInvalidName)

	err = g.Add("ghost", nil, Style{})
	assert.ErrorIs(t, err, ErrInvalidShape)

	assert.Equal(t, 1, g.Len())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(NewPolygon(0, 0, 10, 0, 5, 5)))
	assert.ErrorIs(t, Validate(NewPolygon(0, 0, 10)), ErrInvalidShape)
	assert.ErrorIs(t, Validate(nil), ErrInvalidShape)

	g := NewGroup().MustAdd("tri", Polygon{Points: attr.Ints(1, 2, 3)}, Style{})
	err := Validate(g)
	assert.ErrorIs(t, err, ErrInvalidShape)
	assert.Contains(t, err.Error(), `child "tri"`)
}

func TestSampleRect(t *testing.T) {
	st := Sample(NewRect(275, 275, 0, 50), NewStyle("#F00", "black"), 1)

	assert.Equal(t, KindRect, st.Kind)
	names := make([]string, 0, len(st.Geometry))
	for _, a := range st.Geometry {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"x", "y", "width", "height"}, names)

	fill, ok := st.Lookup("fill")
	require.True(t, ok)
	assert.Equal(t, ir.String("#ff0000"), fill, "hex colours are normalized")

	stroke, ok := st.Lookup("stroke")
	require.True(t, ok)
	assert.Equal(t, ir.String("black"), stroke, "named colours pass through")

	_, ok = st.Lookup("strokeWidth")
	assert.False(t, ok, "undeclared style attributes are absent")
}

func TestSampleFunctionTimeline(t *testing.T) {
	r := NewRect(0, 0, 10, 10)
	r.X = attr.Linear(0, 3, 0)

	assert.False(t, IsConst(r, Style{}))
	st := Sample(r, Style{}, 4)
	x, _ := st.Lookup("x")
	assert.Equal(t, ir.Int(12), x)
}

func TestSampleGroup(t *testing.T) {
	g := NewGroup().
		MustAdd("body", NewRect(0, 0, 40, 20), NewStyle("#00f", "#000")).
		MustAdd("label", NewText(5, 5, "café"), NewStyle("#000", "#000").WithFontSize(12))

	st := Sample(g, Style{}, 0)
	require.Len(t, st.Children, 2)
	assert.Equal(t, "body", st.Children[0].Name)

	label, ok := st.Child("label")
	require.True(t, ok)
	text, _ := label.Lookup("text")
	assert.Equal(t, ir.String("café"), text, "text is NFC normalized")
	size, _ := label.Lookup("fontSize")
	assert.Equal(t, ir.Int(12), size)
	assert.True(t, IsConst(g, Style{}))
}

func TestShapesEqual(t *testing.T) {
	style := NewStyle("#fff", "#000")
	assert.True(t, ShapesEqual(NewRect(1, 2, 3, 4), NewRect(1, 2, 3, 4), style, 0))
	assert.False(t, ShapesEqual(NewRect(1, 2, 3, 4), NewRect(1, 2, 3, 5), style, 0))
	assert.False(t, ShapesEqual(NewRect(1, 2, 3, 4), NewEllipse(1, 2, 3, 4), style, 0))
}

func TestNormalizeColour(t *testing.T) {
	assert.Equal(t, "#ffffff", NormalizeColour("#FFF"))
	assert.Equal(t, "#102030", NormalizeColour("#102030"))
	assert.Equal(t, "none", NormalizeColour("none"))
	assert.Equal(t, "#12", NormalizeColour("#12"))
}
