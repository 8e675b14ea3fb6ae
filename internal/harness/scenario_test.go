package harness

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/animdiff/internal/attr"
	"github.com/roach88/animdiff/internal/scene"
)

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalYAML = `
name: minimal
time_step: 0.5
nodes:
  - {name: a, kind: rect}
script:
  - at: 0
    node: a
    start: {rect: {x: 1, y: 2, width: 3, height: 4}}
    t0: 0
    t1: 1
`

func TestLoadScenario_ValidYAML(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, "s.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, 0.5, scenario.TimeStep)
	require.Len(t, scenario.Nodes, 1)
	assert.Equal(t, "rect", scenario.Nodes[0].Kind)
	require.Len(t, scenario.Script, 1)
	assert.Equal(t, Const(3), scenario.Script[0].Start.Rect.Width)
	assert.Nil(t, scenario.Script[0].End)
	assert.Equal(t, 2, scenario.Config().FPS())
}

func TestLoadScenario_Testdata(t *testing.T) {
	for _, name := range []string{"car.yaml", "car.cue", "demo.yaml"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Script)
		})
	}
}

func TestLoadScenario_CUEMatchesYAML(t *testing.T) {
	fromYAML, err := LoadScenario(filepath.Join("testdata", "scenarios", "car.yaml"))
	require.NoError(t, err)
	fromCUE, err := LoadScenario(filepath.Join("testdata", "scenarios", "car.cue"))
	require.NoError(t, err)

	assert.Equal(t, fromYAML.Name, fromCUE.Name)
	assert.Equal(t, fromYAML.TimeStep, fromCUE.TimeStep)
	assert.Equal(t, fromYAML.Nodes, fromCUE.Nodes)
	assert.Equal(t, fromYAML.Script, fromCUE.Script)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnsupportedExtension(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "s.json", "{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scenario extension")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"top level", minimalYAML + "assertion: []\n", "failed to parse YAML"},
		{"ramp key", strings.Replace(minimalYAML, "x: 1,", "x: {base: 10, stpe: 2},", 1), "field stpe not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, "s.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestIntAttr_RampDecoding(t *testing.T) {
	var a IntAttr
	require.NoError(t, yaml.Unmarshal([]byte("{base: 10, step: 2, from: 4}"), &a))
	assert.Equal(t, Ramp(10, 2, 4), a)

	require.NoError(t, json.Unmarshal([]byte(`{"base":10,"step":2}`), &a))
	assert.Equal(t, Ramp(10, 2, 0), a)

	require.NoError(t, json.Unmarshal([]byte(`7`), &a))
	assert.Equal(t, Const(7), a)

	err := json.Unmarshal([]byte(`{"base":10,"stpe":2}`), &a)
	assert.ErrorContains(t, err, "stpe")
}

func TestLoadScenario_CUERampTypoRejected(t *testing.T) {
	content := `
name: "bad"
time_step: 0.5
nodes: [{name: "a", kind: "rect"}]
script: [{at: 0, node: "a", t0: 0, t1: 1, start: {rect: {x: {base: 10, stpe: 2}, y: 0, width: 1, height: 1}}}]
`
	_, err := LoadScenario(writeScenario(t, "bad.cue", content))
	require.Error(t, err)
}

func TestLoadScenario_CUEErrorsCarryPosition(t *testing.T) {
	content := `
name: "bad"
time_step: 0.5
nodes: [{name: "a", kind: "hexagon"}]
script: []
`
	_, err := LoadScenario(writeScenario(t, "bad.cue", content))
	require.Error(t, err)

	var se *ScenarioError
	require.True(t, errors.As(err, &se), "got %T: %v", err, err)
	assert.True(t, se.Pos.IsValid())
}

func TestLoadScenario_CUEUnknownFieldRejected(t *testing.T) {
	content := `
name: "bad"
time_step: 0.5
speed: 3
nodes: [{name: "a", kind: "rect"}]
script: []
`
	_, err := LoadScenario(writeScenario(t, "bad.cue", content))
	require.Error(t, err)
}

func TestValidateScenario(t *testing.T) {
	rect := &ShapeSpec{Rect: &RectSpec{}}
	base := func() *Scenario {
		return &Scenario{
			Name:     "s",
			TimeStep: 0.5,
			Nodes:    []NodeDecl{{Name: "a", Kind: "rect"}},
			Script:   []Step{{At: 0, Node: "a", Start: rect, T1: 1}},
		}
	}

	tests := []struct {
		name   string
		modify func(s *Scenario)
		errMsg string
	}{
		{"valid", func(s *Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"bad time step", func(s *Scenario) { s.TimeStep = 0.3 }, "time_step"},
		{"no nodes", func(s *Scenario) { s.Nodes = nil }, "nodes list is required"},
		{"slash in name", func(s *Scenario) { s.Nodes[0].Name = "a/b" }, "nodes[0]"},
		{"duplicate node", func(s *Scenario) { s.Nodes = append(s.Nodes, NodeDecl{Name: "a", Kind: "text"}) }, "duplicate node"},
		{"unknown kind", func(s *Scenario) { s.Nodes[0].Kind = "hexagon" }, "unknown kind"},
		{"no script", func(s *Scenario) { s.Script = nil }, "script list is required"},
		{"undeclared node", func(s *Scenario) { s.Script[0].Node = "b" }, "undeclared node"},
		{"missing start", func(s *Scenario) { s.Script[0].Start = nil }, "start is required"},
		{"two kinds", func(s *Scenario) {
			s.Script[0].Start = &ShapeSpec{Rect: &RectSpec{}, Text: &TextSpec{}}
		}, "exactly one"},
		{"odd polygon", func(s *Scenario) {
			s.Script[0].Start = &ShapeSpec{Polygon: &PolygonSpec{Points: []IntAttr{Const(1)}}}
		}, "odd coordinate count"},
		{"time goes back", func(s *Scenario) {
			s.Script = append(s.Script, Step{At: 2, Node: "a", Start: rect}, Step{At: 1, Node: "a", Start: rect})
		}, "before the previous step"},
		{"until before last step", func(s *Scenario) { s.Script[0].At = 3; s.Until = 2 }, "until"},
		{"bad expect_error", func(s *Scenario) { s.Script[0].ExpectError = "LIFECYCLE" }, "expect_error"},
		{"unknown assertion", func(s *Scenario) { s.Assertions = []Assertion{{Type: "trace_order"}} }, "unknown assertion type"},
		{"frame_contains without expect", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertFrameContains, Node: "a", Frame: 1}}
		}, "expect is required"},
		{"visible without value", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertVisible, Node: "a", Frame: 1}}
		}, "visible is required"},
		{"assertion frame zero", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertNodeAbsent, Node: "a"}}
		}, "frame must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.modify(s)
			err := validateScenario(s)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestIntAttr_Decoding(t *testing.T) {
	content := `
name: ramps
time_step: 1
nodes:
  - {name: a, kind: rect}
script:
  - at: 0
    node: a
    start: {rect: {x: {base: 10, step: 2, from: 1}, y: 0, width: 1, height: 1}}
    style: {stroke_width: {base: 1, step: 1}}
    t0: 0
    t1: 3
`
	scenario, err := LoadScenario(writeScenario(t, "s.yaml", content))
	require.NoError(t, err)

	x := scenario.Script[0].Start.Rect.X
	assert.Equal(t, Ramp(10, 2, 1), x)
	tl := x.Timeline()
	assert.False(t, tl.IsConst())
	assert.Equal(t, 10, tl.At(1))
	assert.Equal(t, 14, tl.At(3))

	var a IntAttr
	require.NoError(t, a.UnmarshalJSON([]byte(`7`)))
	assert.Equal(t, Const(7), a)
	require.NoError(t, a.UnmarshalJSON([]byte(`{"base":1,"step":3}`)))
	assert.Equal(t, Ramp(1, 3, 0), a)
	assert.Error(t, a.UnmarshalJSON([]byte(`1.5`)))
}

func TestShapeSpec_Group(t *testing.T) {
	fill := "#00f"
	spec := ShapeSpec{Group: []ChildSpec{
		{Name: "body", Shape: ShapeSpec{Rect: &RectSpec{Width: Const(4), Height: Const(2)}}, Style: &StyleSpec{Fill: &fill}},
		{Name: "wheel", Shape: ShapeSpec{Ellipse: &EllipseSpec{RX: Const(1), RY: Const(1)}}},
	}}
	shape, err := spec.Shape()
	require.NoError(t, err)
	g, ok := shape.(*scene.Group)
	require.True(t, ok)
	assert.Equal(t, 2, g.Len())

	dup := ShapeSpec{Group: []ChildSpec{
		{Name: "x", Shape: ShapeSpec{Rect: &RectSpec{}}},
		{Name: "x", Shape: ShapeSpec{Rect: &RectSpec{}}},
	}}
	_, err = dup.Shape()
	assert.ErrorIs(t, err, scene.ErrDuplicateChild)
}

func TestStyleSpec_Style(t *testing.T) {
	var nilSpec *StyleSpec
	assert.True(t, nilSpec.Style().IsZero())

	fill := "#FF0000"
	size := Const(12)
	st := (&StyleSpec{Fill: &fill, FontSize: &size}).Style()
	require.NotNil(t, st.Fill)
	assert.Equal(t, "#FF0000", st.Fill.At(0))
	assert.Nil(t, st.Stroke)
	require.NotNil(t, st.FontSize)
	assert.Equal(t, attr.Const(12).At(5), st.FontSize.At(5))
}
