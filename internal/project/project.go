// Package project models a render project: its configuration, discovered
// input files, and the engines claiming them.
package project

import (
	"path/filepath"

	"git.home.luguber.info/inful/renderkit/internal/config"
)

// ScratchDirName is the project-local scratch area holding the input index
// cache, the hidden freezer, and the render event log.
const ScratchDirName = ".renderkit"

// Files groups the path sets belonging to a project.
type Files struct {
	// Input is the ordered set of render-eligible files (absolute paths).
	Input []string
	// Resources are project-level resource files (absolute paths).
	Resources []string
	// Config lists the project configuration files, if any.
	Config []string
}

// Context is the per-invocation view of a project. It is constructed once per
// render invocation, or refreshed on demand by a long-lived preview process.
type Context struct {
	Dir     string
	Config  *config.Config
	Files   Files
	Engines []string
}

// ScratchDir returns the project-local scratch directory.
func (c *Context) ScratchDir() string {
	return filepath.Join(c.Dir, ScratchDirName)
}

// OutputDir returns the absolute output directory.
func (c *Context) OutputDir() string {
	return filepath.Join(c.Dir, c.Config.Output.Directory)
}

// ConfigPath returns the project configuration file path, or empty.
func (c *Context) ConfigPath() string {
	if len(c.Files.Config) == 0 {
		return ""
	}
	return c.Files.Config[0]
}

// IsInput reports whether abs is one of the project's input files.
func (c *Context) IsInput(abs string) bool {
	for _, in := range c.Files.Input {
		if in == abs {
			return true
		}
	}
	return false
}
