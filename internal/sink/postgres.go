package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/roach88/animdiff/internal/ir"
)

// PostgresConfig configures the Postgres sink. An empty DSN is built from
// the PG* environment variables.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// DSNFromEnv builds a lib/pq connection string from PGHOST, PGPORT, PGUSER,
// PGDATABASE and PGPASSWORD.
func DSNFromEnv() string {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "animdiff")
	dbname := getEnv("PGDATABASE", "animdiff")
	password := os.Getenv("PGPASSWORD")

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS animdiff_runs (
	run_id     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	fps        INTEGER NOT NULL,
	header     JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	stopped_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS animdiff_frames (
	run_id      TEXT NOT NULL REFERENCES animdiff_runs(run_id),
	frame_index INTEGER NOT NULL,
	delta       JSONB NOT NULL,
	PRIMARY KEY (run_id, frame_index)
);
`

// Postgres writes runs and frames into Postgres.
type Postgres struct {
	db    *sql.DB
	seq   Sequence
	runID string
}

// OpenPostgres connects and creates the tables if needed.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DSNFromEnv()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create animdiff tables: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) SendStart(ctx context.Context, h Header) error {
	if err := p.seq.Start(); err != nil {
		return err
	}
	if h.RunID == "" {
		return fmt.Errorf("postgres sink: header has no run id")
	}
	head, err := json.Marshal(h)
	if err != nil {
		return err
	}
	p.runID = h.RunID
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO animdiff_runs (run_id, name, fps, header) VALUES ($1, $2, $3, $4)`,
		h.RunID, h.Name, h.FPS, string(head))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", h.RunID, err)
	}
	return nil
}

func (p *Postgres) SendFrame(ctx context.Context, f Frame) error {
	if err := p.seq.Frame(f.Index); err != nil {
		return err
	}
	delta, err := ir.MarshalCanonical(f.Delta)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO animdiff_frames (run_id, frame_index, delta) VALUES ($1, $2, $3)`,
		p.runID, f.Index, string(delta))
	if err != nil {
		return fmt.Errorf("insert frame %d: %w", f.Index, err)
	}
	return nil
}

func (p *Postgres) SendStop(ctx context.Context) error {
	if err := p.seq.Stop(); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE animdiff_runs SET stopped_at = now() WHERE run_id = $1`, p.runID)
	return err
}
