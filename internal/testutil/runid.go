package testutil

// DefaultRunID is returned by a FixedRunID created with an empty id.
const DefaultRunID = "test-run-default"

// FixedRunID generates the same run id every time.
//
// Deterministic run ids keep recorded runs and golden output byte-identical
// across executions. Unlike engine.FixedGenerator, which hands out ids in
// sequence, it never runs out.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run id generator.
//
// The id is typically set in the scenario file:
//
//	run_id: "test-run-00000000-0000-0000-0000-000000000001"
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id. Implements engine.RunIDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}
