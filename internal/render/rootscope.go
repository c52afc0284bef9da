package render

import "context"

// The project root travels to renderer collaborators as an explicit context
// value scoped to the render call, not as ambient process state. It is
// therefore released on every exit path by construction: the derived context
// simply goes out of scope with the call.

type projectRootKey struct{}

// WithProjectRoot returns a context carrying the absolute project root.
func WithProjectRoot(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, projectRootKey{}, dir)
}

// ProjectRootFrom returns the project root published for the current render
// call, if any.
func ProjectRootFrom(ctx context.Context) (string, bool) {
	dir, ok := ctx.Value(projectRootKey{}).(string)
	return dir, ok
}
