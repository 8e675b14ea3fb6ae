package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/animdiff/internal/engine"
	"github.com/roach88/animdiff/internal/scene"
)

// Scenario is a scripted animation run. The script stands in for a
// discrete-event scheduler: each step advances time to At and then declares
// one keyframe for one node.
type Scenario struct {
	// Name identifies the scenario and becomes the output header name.
	Name string `yaml:"name" json:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// TimeStep is Δ, seconds per frame.
	TimeStep float64 `yaml:"time_step" json:"time_step"`

	Width  *int `yaml:"width,omitempty" json:"width,omitempty"`
	Height *int `yaml:"height,omitempty" json:"height,omitempty"`
	StartX *int `yaml:"start_x,omitempty" json:"start_x,omitempty"`
	StartY *int `yaml:"start_y,omitempty" json:"start_y,omitempty"`

	// RunID fixes the run id for deterministic recordings.
	// If empty, testutil.DefaultRunID is used.
	RunID string `yaml:"run_id,omitempty" json:"run_id,omitempty"`

	// Nodes are registered in order before the script runs.
	Nodes []NodeDecl `yaml:"nodes" json:"nodes"`

	// Script steps run in order; At never decreases.
	Script []Step `yaml:"script" json:"script"`

	// Until, when set, is the last time stepped to. Frames compiled beyond
	// it are dropped. When zero, every compiled frame is flushed.
	Until float64 `yaml:"until,omitempty" json:"until,omitempty"`

	// Assertions validate the emitted frames.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// NodeDecl registers a node of a fixed kind.
type NodeDecl struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
}

// Step is one scheduler event: advance to At, then update Node.
type Step struct {
	At   float64 `yaml:"at" json:"at"`
	Node string  `yaml:"node" json:"node"`

	// Start is required. End defaults to Start.
	Start *ShapeSpec `yaml:"start" json:"start"`
	End   *ShapeSpec `yaml:"end,omitempty" json:"end,omitempty"`
	Style *StyleSpec `yaml:"style,omitempty" json:"style,omitempty"`

	T0   float64 `yaml:"t0" json:"t0"`
	T1   float64 `yaml:"t1" json:"t1"`
	Keep bool    `yaml:"keep,omitempty" json:"keep,omitempty"`

	// ExpectError is the runtime error code the update must fail with,
	// e.g. REJECTED_UPDATE. Empty means the update must succeed.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// Assertion validates emitted frames.
type Assertion struct {
	// Type specifies the assertion type:
	// - "frame_count": exactly Count frames were emitted
	// - "frame_contains": Node's delta at Frame contains Expect (subset match)
	// - "node_absent": Node has no delta at Frame
	// - "visible": Node's visibility after Frame equals Visible
	// - "rejections": exactly Count updates were rejected
	Type string `yaml:"type" json:"type"`

	Frame int    `yaml:"frame,omitempty" json:"frame,omitempty"`
	Node  string `yaml:"node,omitempty" json:"node,omitempty"`

	// Expect holds attribute values (used by frame_contains).
	Expect map[string]any `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Count is used by frame_count and rejections.
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Visible is used by visible.
	Visible *bool `yaml:"visible,omitempty" json:"visible,omitempty"`
}

// Assertion type constants.
const (
	AssertFrameCount    = "frame_count"
	AssertFrameContains = "frame_contains"
	AssertNodeAbsent    = "node_absent"
	AssertVisible       = "visible"
	AssertRejections    = "rejections"
)

// Scenario file formats.
const (
	FormatYAML = "yaml"
	FormatCUE  = "cue"
)

// FormatOf returns the scenario format for a file extension, or "" when the
// extension is not a scenario extension.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".cue":
		return FormatCUE
	}
	return ""
}

// LoadScenario reads and parses a scenario file. The format follows the
// extension: .yaml/.yml or .cue.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	format := FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("unsupported scenario extension %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, format, path)
}

// ParseScenario parses scenario source in the given format. filename is used
// in error positions only.
func ParseScenario(data []byte, format, filename string) (*Scenario, error) {
	var (
		scenario *Scenario
		err      error
	)
	switch format {
	case FormatYAML:
		scenario, err = parseYAML(data)
	case FormatCUE:
		scenario, err = parseCUE(data, filename)
	default:
		return nil, fmt.Errorf("unknown scenario format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// Config returns the animator configuration for the scenario.
func (s *Scenario) Config() engine.Config {
	return engine.Config{
		Name:     s.Name,
		TimeStep: s.TimeStep,
		Width:    s.Width,
		Height:   s.Height,
		StartX:   s.StartX,
		StartY:   s.StartY,
	}
}

// expectableCodes are the error codes a step may expect.
var expectableCodes = map[string]bool{
	string(engine.ErrCodeRejectedUpdate): true,
	string(engine.ErrCodeKindMismatch):   true,
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if err := s.Config().Validate(); err != nil {
		return fmt.Errorf("time_step: %w", err)
	}

	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}

	kinds := make(map[string]scene.Kind, len(s.Nodes))
	for i, n := range s.Nodes {
		if err := scene.ValidateName(n.Name); err != nil {
			return fmt.Errorf("nodes[%d]: %w", i, err)
		}
		if _, dup := kinds[n.Name]; dup {
			return fmt.Errorf("nodes[%d]: duplicate node %q", i, n.Name)
		}
		kind := scene.Kind(n.Kind)
		if !scene.ValidKinds[kind] {
			return fmt.Errorf("nodes[%d]: unknown kind %q", i, n.Kind)
		}
		kinds[n.Name] = kind
	}

	if len(s.Script) == 0 {
		return fmt.Errorf("script list is required and must be non-empty")
	}

	last := 0.0
	for i, step := range s.Script {
		if err := validateStep(i, &step, kinds, last); err != nil {
			return err
		}
		last = step.At
	}

	if s.Until != 0 && s.Until < last {
		return fmt.Errorf("until %g is before the last step at %g", s.Until, last)
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, kinds); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks a script step. Kind mismatches between a step's shape
// and its node are not errors here: they are rejected at run time and can be
// expected with expect_error.
func validateStep(index int, step *Step, kinds map[string]scene.Kind, last float64) error {
	if step.Node == "" {
		return fmt.Errorf("script[%d]: node is required", index)
	}
	if _, ok := kinds[step.Node]; !ok {
		return fmt.Errorf("script[%d]: undeclared node %q", index, step.Node)
	}
	if step.At < 0 {
		return fmt.Errorf("script[%d]: at must be non-negative", index)
	}
	if step.At < last {
		return fmt.Errorf("script[%d]: at %g is before the previous step at %g", index, step.At, last)
	}
	if step.Start == nil {
		return fmt.Errorf("script[%d]: start is required", index)
	}
	if err := step.Start.validate(); err != nil {
		return fmt.Errorf("script[%d].start: %w", index, err)
	}
	if step.End != nil {
		if err := step.End.validate(); err != nil {
			return fmt.Errorf("script[%d].end: %w", index, err)
		}
	}
	if step.ExpectError != "" && !expectableCodes[step.ExpectError] {
		return fmt.Errorf("script[%d]: expect_error %q is not an update error code", index, step.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, kinds map[string]scene.Kind) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsNode := func() error {
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
		if _, ok := kinds[a.Node]; !ok {
			return fmt.Errorf("assertions[%d]: undeclared node %q", index, a.Node)
		}
		if a.Frame < 1 {
			return fmt.Errorf("assertions[%d]: frame must be at least 1 for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertFrameCount, AssertRejections:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertFrameContains:
		if err := needsNode(); err != nil {
			return err
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for frame_contains", index)
		}
	case AssertNodeAbsent:
		return needsNode()
	case AssertVisible:
		if err := needsNode(); err != nil {
			return err
		}
		if a.Visible == nil {
			return fmt.Errorf("assertions[%d]: visible is required for visible", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
