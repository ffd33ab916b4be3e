package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/abcstream/internal/config"
	"github.com/Faultbox/abcstream/internal/logger"
	"github.com/Faultbox/abcstream/internal/metrics"
	"github.com/Faultbox/abcstream/internal/scene"
	"github.com/Faultbox/abcstream/pkg/cache"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const stateKey = "state"

// state is what Before prepares for every command.
type state struct {
	cfg     *config.Config
	metrics *metrics.Recorder
	server  *http.Server
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "abcstream",
		Usage:   "inspect, resample and export time-sampled scene caches",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			infoCommand(),
			sampleCommand(),
			exportCommand(),
			playCommand(),
			configCommand(),
		},
		Metadata: map[string]any{},
		Before:   before,
		After:    after,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (default: ./abcstream.yaml, then the user config dir)",
			EnvVars: []string{"ABCSTREAM_CONFIG"},
		},
		&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		&cli.StringFlag{Name: "log-file", Usage: "also write JSON logs to this file"},
		&cli.IntFlag{Name: "split-unit", Usage: "maximum vertices per split"},
		&cli.Float64Flag{Name: "fps", Usage: "playback rate for the play command"},
		&cli.IntFlag{Name: "workers", Usage: "goroutines used to load and update (0 = one per CPU)"},
		&cli.BoolFlag{Name: "interpolate", Usage: "blend between stored samples"},
		&cli.BoolFlag{Name: "swap-handedness", Usage: "mirror X to convert right-handed data"},
		&cli.BoolFlag{Name: "sort-points", Usage: "sort point clouds by distance to the sort base"},
		&cli.BoolFlag{Name: "metrics", Usage: "serve Prometheus metrics while the command runs"},
	}
}

// overrides maps the global flags onto config overrides. Boolean switches
// only override the file when given explicitly.
func overrides(c *cli.Context) config.Overrides {
	o := config.Overrides{
		ConfigPath: c.String("config"),
		Debug:      c.Bool("debug"),
		LogFile:    c.String("log-file"),
		SplitUnit:  c.Int("split-unit"),
		FPS:        c.Float64("fps"),
		Workers:    c.Int("workers"),
	}
	flag := func(name string) *bool {
		if !c.IsSet(name) {
			return nil
		}
		v := c.Bool(name)
		return &v
	}
	o.Interpolate = flag("interpolate")
	o.SwapHandedness = flag("swap-handedness")
	o.SortPoints = flag("sort-points")
	o.Metrics = flag("metrics")
	return o
}

func before(c *cli.Context) error {
	cfg, err := config.Load(overrides(c))
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	st := &state{cfg: cfg}
	if cfg.Metrics.Enabled {
		st.metrics = metrics.New()
		if st.server, err = serveMetrics(cfg.Metrics.Listen, st.metrics); err != nil {
			return err
		}
	}
	c.App.Metadata[stateKey] = st
	return nil
}

func after(c *cli.Context) error {
	defer logger.Sync()
	st, ok := c.App.Metadata[stateKey].(*state)
	if !ok || st.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return st.server.Shutdown(ctx)
}

func serveMetrics(addr string, rec *metrics.Recorder) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return srv, nil
}

func getState(c *cli.Context) *state {
	if st, ok := c.App.Metadata[stateKey].(*state); ok {
		return st
	}
	return &state{cfg: config.Default()}
}

// loadScene reads the cache named by the first argument and loads it with
// the effective import settings.
func loadScene(c *cli.Context) (*scene.Scene, error) {
	path := c.Args().First()
	if path == "" {
		return nil, errors.New("missing cache file argument")
	}
	st := getState(c)

	sc, err := st.cfg.SceneConfig()
	if err != nil {
		return nil, err
	}
	archive, err := cache.LoadYAML(path)
	if err != nil {
		return nil, err
	}
	return scene.Load(c.Context, archive, sc, scene.WithMetrics(st.metrics))
}
