package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/animdiff/internal/engine"
	"github.com/roach88/animdiff/internal/sink"
	"github.com/roach88/animdiff/internal/store"
)

// SinksConfig selects the sinks a run streams to. Every configured sink
// receives every frame.
//
//	mqtt:
//	  broker: tcp://localhost:1883   # default: $MQTT_URL
//	  topic: animdiff/demo
//	  qos: 1
//	websocket:
//	  addr: ":8080"
//	  path: /frames
//	postgres:
//	  dsn: ""                        # default: PGHOST, PGPORT, PGUSER, PGDATABASE, PGPASSWORD
//	sqlite:
//	  path: recordings.db
//	file:
//	  path: out.json
type SinksConfig struct {
	MQTT      *sink.MQTTConfig     `yaml:"mqtt,omitempty"`
	WebSocket *WebSocketConfig     `yaml:"websocket,omitempty"`
	Postgres  *sink.PostgresConfig `yaml:"postgres,omitempty"`
	SQLite    *PathConfig          `yaml:"sqlite,omitempty"`
	File      *PathConfig          `yaml:"file,omitempty"`
}

// WebSocketConfig configures the WebSocket hub server.
type WebSocketConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
	// WaitClients delays the start of the run until this many clients have
	// connected.
	WaitClients int `yaml:"wait_clients"`
}

// PathConfig names a file.
type PathConfig struct {
	Path string `yaml:"path"`
}

// LoadSinksConfig reads a sinks file with strict field validation.
func LoadSinksConfig(path string) (*SinksConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sinks config: %w", err)
	}

	var cfg SinksConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sinks config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid sinks config: %w", err)
	}
	return &cfg, nil
}

func (c *SinksConfig) validate() error {
	if c.MQTT != nil && c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if c.WebSocket != nil && c.WebSocket.Addr == "" {
		return fmt.Errorf("websocket.addr is required")
	}
	if c.SQLite != nil && c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	if c.File != nil && c.File.Path == "" {
		return fmt.Errorf("file.path is required")
	}
	return nil
}

// Empty reports whether no sink is configured.
func (c *SinksConfig) Empty() bool {
	return c.MQTT == nil && c.WebSocket == nil && c.Postgres == nil && c.SQLite == nil && c.File == nil
}

// sinkSet is the opened sinks of one run.
type sinkSet struct {
	tee     sink.Tee
	closers []func() error
}

// openSinks connects every configured sink. On error the sinks opened so
// far are closed.
func openSinks(ctx context.Context, cfg *SinksConfig, loaded *LoadedScenario, logger *slog.Logger) (_ *sinkSet, err error) {
	set := &sinkSet{}
	defer func() {
		if err != nil {
			set.Close()
		}
	}()

	if cfg.File != nil {
		f, err := os.Create(cfg.File.Path)
		if err != nil {
			return nil, fmt.Errorf("file sink: %w", err)
		}
		set.closers = append(set.closers, f.Close)
		set.tee = append(set.tee, sink.NewJSON(f))
	}

	if cfg.SQLite != nil {
		st, err := store.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite sink: %w", err)
		}
		set.closers = append(set.closers, st.Close)
		set.tee = append(set.tee, store.NewRecorder(st, string(loaded.Source), loaded.Format))
	}

	if cfg.Postgres != nil {
		pg, err := sink.OpenPostgres(ctx, *cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres sink: %w", err)
		}
		set.closers = append(set.closers, pg.Close)
		set.tee = append(set.tee, pg)
	}

	if cfg.MQTT != nil {
		client, err := sink.ConnectMQTT(*cfg.MQTT, logger)
		if err != nil {
			return nil, fmt.Errorf("mqtt sink: %w", err)
		}
		set.closers = append(set.closers, func() error {
			client.Disconnect(250)
			return nil
		})
		set.tee = append(set.tee, sink.NewMQTT(client, *cfg.MQTT, logger))
	}

	if cfg.WebSocket != nil {
		hub, shutdown, err := serveHub(*cfg.WebSocket, logger)
		if err != nil {
			return nil, fmt.Errorf("websocket sink: %w", err)
		}
		set.closers = append(set.closers, shutdown)
		set.tee = append(set.tee, hub)

		if err := waitForClients(ctx, hub, cfg.WebSocket.WaitClients, logger); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// Close closes every opened sink in reverse order.
func (s *sinkSet) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// serveHub starts an HTTP server for the hub and returns its shutdown.
func serveHub(cfg WebSocketConfig, logger *slog.Logger) (*sink.Hub, func() error, error) {
	path := cfg.Path
	if path == "" {
		path = "/frames"
	}
	hub := sink.NewHub(logger)
	mux := http.NewServeMux()
	mux.Handle(path, hub)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("websocket server stopped", "error", err)
		}
	}()
	logger.Info("websocket hub listening", "addr", ln.Addr().String(), "path", path)

	shutdown := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
	return hub, shutdown, nil
}

func waitForClients(ctx context.Context, hub *sink.Hub, n int, logger *slog.Logger) error {
	if n <= 0 {
		return nil
	}
	logger.Info("waiting for websocket clients", "want", n)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for hub.Clients() < n {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// pacedSink delays each frame until its wall-clock time, index/fps seconds
// after the start.
type pacedSink struct {
	next  sink.Sink
	clock engine.Clock
	fps   int
}

func newPacedSink(next sink.Sink) *pacedSink {
	return &pacedSink{next: next}
}

func (p *pacedSink) SendStart(ctx context.Context, h sink.Header) error {
	p.fps = h.FPS
	p.clock = engine.NewWallClock()
	return p.next.SendStart(ctx, h)
}

func (p *pacedSink) SendFrame(ctx context.Context, f sink.Frame) error {
	if p.clock != nil && p.fps > 0 {
		due := float64(f.Index) / float64(p.fps)
		if wait := due - p.clock.Now(); wait > 0 {
			timer := time.NewTimer(time.Duration(wait * float64(time.Second)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return p.next.SendFrame(ctx, f)
}

func (p *pacedSink) SendStop(ctx context.Context) error {
	return p.next.SendStop(ctx)
}
