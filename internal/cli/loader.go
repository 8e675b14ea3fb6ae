package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/animdiff/internal/harness"
)

// LoadError represents an error that occurred while loading a scenario.
type LoadError struct {
	Code    string
	Message string
	File    string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the CUE line of the error, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // Scenario parse or schema error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBadFormat   = "E006" // Unsupported scenario extension
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeRunFailed   = "E008" // Scenario execution error
	ErrCodeSinkFailed  = "E009" // Sink configuration or connection error
)

// LoadedScenario is a parsed scenario with its source, kept so recordings
// can be recompiled later.
type LoadedScenario struct {
	Path     string
	Format   string
	Source   []byte
	Scenario *harness.Scenario
}

// LoadScenarioFile reads and parses a scenario, classifying failures.
func LoadScenarioFile(path string) (*LoadedScenario, error) {
	format := harness.FormatOf(path)
	if format == "" {
		return nil, &LoadError{Code: ErrCodeBadFormat, File: path,
			Message: fmt.Sprintf("unsupported scenario extension %q (want .yaml, .yml or .cue)", filepath.Ext(path))}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, File: path, Message: "scenario file not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, File: path, Message: err.Error()}
	}

	scenario, err := harness.ParseScenario(data, format, path)
	if err != nil {
		return nil, convertScenarioError(path, err)
	}
	return &LoadedScenario{Path: path, Format: format, Source: data, Scenario: scenario}, nil
}

// convertScenarioError converts a harness error to a LoadError with position
// info.
func convertScenarioError(path string, err error) *LoadError {
	var se *harness.ScenarioError
	if errors.As(err, &se) {
		return &LoadError{Code: ErrCodeLoadFailed, File: path, Message: se.Message, Pos: se.Pos}
	}
	return &LoadError{Code: ErrCodeLoadFailed, File: path, Message: err.Error()}
}

// FindScenarioFiles walks dir and returns scenario files whose base name
// matches filter (a glob; empty matches everything). The golden directory
// is skipped.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		if harness.FormatOf(path) == "" {
			return nil
		}
		if filter != "" {
			base := filepath.Base(path)
			name := base[:len(base)-len(filepath.Ext(base))]
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
