package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/renderkit/internal/config"
	"git.home.luguber.info/inful/renderkit/internal/engine"
	"git.home.luguber.info/inful/renderkit/internal/eventstore"
	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/metrics"
	"git.home.luguber.info/inful/renderkit/internal/pipeline"
	"git.home.luguber.info/inful/renderkit/internal/preview"
	"git.home.luguber.info/inful/renderkit/internal/project"
	"git.home.luguber.info/inful/renderkit/internal/render"
)

// PreviewCmd implements the 'preview' command.
type PreviewCmd struct {
	Port int `short:"p" help:"Override the configured preview port"`
}

func (p *PreviewCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.LoadProject(root.Dir)
	if err != nil {
		return fmt.Errorf("load project config: %w", err)
	}
	if p.Port > 0 {
		cfg.Preview.Port = p.Port
	}

	proj, err := project.Discover(root.Dir, cfg, engine.Default())
	if err != nil {
		return fmt.Errorf("discover project: %w", err)
	}

	recorder := metrics.NewPrometheusRecorder()

	store, err := openEventStore(root.Dir)
	if err != nil {
		slog.Warn("Render history disabled", logfields.Error(err))
		store = nil
	}

	pipe := pipeline.New(render.NewMarkdownRenderer()).WithRecorder(recorder)
	if store != nil {
		defer func() { _ = store.Close() }()
		pipe = pipe.WithEvents(eventstore.NewSink(store))
	}

	builder := preview.BuilderFunc(func(ctx context.Context, full bool) error {
		result, err := pipe.Run(ctx, root.Dir, pipeline.Options{UseFreezer: !full})
		if err != nil {
			return err
		}
		return result.FirstError
	})

	server := preview.NewServer(proj, builder)
	server.MetricsHandler = recorder.Handler()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx)
}
