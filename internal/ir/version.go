package ir

// Version constants stamped into recordings.
const (
	// FormatVersion is the output schema version.
	FormatVersion = "1"

	// CompilerVersion is the animdiff compiler version.
	CompilerVersion = "0.1.0"
)
