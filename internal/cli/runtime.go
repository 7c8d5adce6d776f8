package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/bimbridge/internal/config"
	"github.com/roach88/bimbridge/internal/engine"
	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/scene"
	"github.com/roach88/bimbridge/internal/store"
)

// loadConfig reads --config, or the defaults when it is unset.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger writes text logs to w. --verbose forces debug, otherwise the
// config's level applies.
func newLogger(opts *RootOptions, cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// openJournal opens the journal at path. An empty path means no journal.
func openJournal(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

// runtime is a document with a running host loop and a bridge onto it.
type runtime struct {
	doc    *host.Document
	loop   *host.Loop
	bridge *engine.Bridge
	done   chan error
}

type runtimeOptions struct {
	scenePath string
	cfg       config.Config
	journal   *store.Store
	metrics   *engine.Metrics
	logger    *slog.Logger
}

// startRuntime builds the document from the scene file and starts its
// host loop. Call stop to drain the loop.
func startRuntime(ctx context.Context, o runtimeOptions) (*runtime, error) {
	doc, err := scene.LoadDocument(o.scenePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scene", err)
	}

	loop := host.NewLoop(doc, host.WithLogger(o.logger))
	rt := &runtime{doc: doc, loop: loop, done: make(chan error, 1)}
	go func() { rt.done <- loop.Run(ctx) }()

	bridgeOpts := []engine.BridgeOption{
		engine.WithLogger(o.logger),
		engine.WithTimeouts(o.cfg.EngineTimeouts()),
	}
	if o.journal != nil {
		bridgeOpts = append(bridgeOpts, engine.WithJournal(o.journal))
	}
	if o.metrics != nil {
		bridgeOpts = append(bridgeOpts, engine.WithMetrics(o.metrics))
	}
	rt.bridge = engine.NewBridge(loop,
		engine.NewDispatcher(
			engine.WithSuppressPatterns(o.cfg.SuppressPatterns),
			engine.WithDispatchLogger(o.logger),
		),
		bridgeOpts...,
	)
	return rt, nil
}

// stop closes the loop's queue and waits for queued work to finish.
func (rt *runtime) stop() error {
	rt.loop.Stop()
	return <-rt.done
}
