package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/renderkit/internal/eventstore"
	"git.home.luguber.info/inful/renderkit/internal/project"
)

// Global carries state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition and global flags.
type CLI struct {
	Dir     string           `short:"d" help:"Project directory" default:"." type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Render  RenderCmd  `cmd:"" help:"Render the project, or selected files, into the output directory"`
	Preview PreviewCmd `cmd:"" help:"Serve the rendered output and re-render on source changes"`
	History HistoryCmd `cmd:"" help:"Show recorded render history"`
}

// AfterApply runs after flag parsing; sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// eventDBPath is the render event log location inside the project scratch
// directory.
func eventDBPath(projectDir string) string {
	return filepath.Join(projectDir, project.ScratchDirName, "events.db")
}

// openEventStore opens the project event log, creating the scratch
// directory when needed.
func openEventStore(projectDir string) (*eventstore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(eventDBPath(projectDir)), 0o755); err != nil {
		return nil, err
	}
	return eventstore.Open(eventDBPath(projectDir))
}
