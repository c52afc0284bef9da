package commands

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/renderkit/internal/eventstore"
	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/pipeline"
	"git.home.luguber.info/inful/renderkit/internal/render"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	Files      []string `arg:"" optional:"" help:"Files or globs to render; omit for the full project" type:"path"`
	UseFreezer bool     `name:"use-freezer" help:"Serve unchanged execution results from the freezer during incremental renders"`
}

func (r *RenderCmd) Run(_ *Global, root *CLI) error {
	store, err := openEventStore(root.Dir)
	if err != nil {
		slog.Warn("Render history disabled", logfields.Error(err))
		store = nil
	}

	p := pipeline.New(render.NewMarkdownRenderer())
	if store != nil {
		defer func() { _ = store.Close() }()
		p = p.WithEvents(eventstore.NewSink(store))
	}

	result, err := p.Run(context.Background(), root.Dir, pipeline.Options{
		Files:      r.Files,
		UseFreezer: r.UseFreezer,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Rendered %d file(s) to %s\n", len(result.Files), result.OutputDir)
	if result.FirstError != nil {
		return fmt.Errorf("render completed with failures: %w", result.FirstError)
	}
	return nil
}
