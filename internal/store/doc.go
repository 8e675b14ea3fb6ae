// Package store provides SQLite-backed recordings of animdiff runs.
//
// A recording holds:
//   - Runs: header, scenario source and final frame digest
//   - Frames: one canonical JSON delta per frame index
//
// Frames are read back with ORDER BY frame_index ASC, so a recording replays
// byte-for-byte. Runs list in recording order (seq), never by wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
