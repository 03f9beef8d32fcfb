package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-transcribe/internal/bus"
	"github.com/loqalabs/loqa-transcribe/internal/config"
	"github.com/loqalabs/loqa-transcribe/internal/natsserver"
	"github.com/loqalabs/loqa-transcribe/internal/store"
	"github.com/loqalabs/loqa-transcribe/internal/telemetry"
	"github.com/loqalabs/loqa-transcribe/internal/vad"
)

const defaultConfigHint = config.DefaultPath + " when present"

// app holds what every command shares: configuration, logging, telemetry
// and the optional archive and event bus.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	tel    *telemetry.Telemetry
	store  *store.Store
	nats   *natsserver.EmbeddedServer
	bus    *bus.Client
}

// setup loads configuration and installs logging and telemetry. Logs and
// stdout traces go to logOut.
func setup(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(config.Resolve(configPath))
	if err != nil {
		return nil, withExitCode(2, fmt.Errorf("load config: %w", err))
	}
	logger, err := newLogger(logOut, cfg.Telemetry.LogLevel, logFormat)
	if err != nil {
		return nil, withExitCode(2, err)
	}
	tel, err := telemetry.Setup(cmd.Context(), cfg, logOut, logger)
	if err != nil {
		return nil, withExitCode(2, fmt.Errorf("setup telemetry: %w", err))
	}
	return &app{cfg: cfg, logger: logger, tel: tel}, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the transcript archive. A disabled store is a no-op.
func (a *app) openStore(ctx context.Context) error {
	st, err := store.Open(ctx, a.cfg.Store, a.logger)
	if err != nil {
		return fmt.Errorf("open transcript store: %w", err)
	}
	a.store = st
	return nil
}

// connectBus starts the embedded broker when configured and connects the
// publisher. Bus failures are logged and leave the bus unset.
func (a *app) connectBus(ctx context.Context) {
	if !a.cfg.Bus.Enabled {
		return
	}
	busCfg := a.cfg.Bus
	ns, err := natsserver.Start(busCfg, a.logger)
	if err != nil {
		a.logger.Warn("embedded NATS unavailable", slog.String("error", err.Error()))
		return
	}
	if ns != nil {
		a.nats = ns
		busCfg.Servers = []string{ns.ClientURL()}
	}
	client, err := bus.Connect(ctx, busCfg, a.logger)
	if err != nil {
		a.logger.Warn("event bus unavailable", slog.String("error", err.Error()))
		return
	}
	a.bus = client
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	if a.bus != nil {
		a.bus.Close()
	}
	a.nats.Shutdown()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store failed", slog.String("error", err.Error()))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown error", slog.String("error", err.Error()))
	}
}

func vadConfig(c config.VADConfig) vad.Config {
	return vad.Config{
		FrameMS:      c.FrameMS,
		RMSThreshold: c.RMSThreshold,
		MinSpeechMS:  c.MinSpeechMS,
		MinSilenceMS: c.MinSilenceMS,
		MaxSegmentS:  c.MaxSegmentS,
		MergeGapMS:   c.MergeGapMS,
	}
}
