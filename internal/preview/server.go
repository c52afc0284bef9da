// Package preview serves the rendered output over HTTP and re-renders the
// project when its sources change on disk.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/project"
)

// Builder re-renders the project. full selects a full render over an
// incremental one.
type Builder interface {
	Rebuild(ctx context.Context, full bool) error
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, full bool) error

func (f BuilderFunc) Rebuild(ctx context.Context, full bool) error { return f(ctx, full) }

type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
}

func (bs *buildStatus) set(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = err
	if err == nil {
		bs.hasGoodBuild = true
	}
}

func (bs *buildStatus) healthy() bool {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.lastError == nil && bs.hasGoodBuild
}

// Server watches a project and serves its output directory.
type Server struct {
	project *project.Context
	build   Builder
	queue   *Queue
	status  buildStatus

	// MetricsHandler, when set, is exposed at /metrics.
	MetricsHandler http.Handler
}

// NewServer creates a preview server for proj driven by build.
func NewServer(proj *project.Context, build Builder) *Server {
	return &Server{project: proj, build: build, queue: NewQueue()}
}

// Run performs an initial full render, then serves and watches until ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.rebuild(ctx, true)

	watcher, err := newWatcher(s.project)
	if err != nil {
		return fmt.Errorf("watch project: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	window := time.Duration(s.project.Config.Preview.DebounceMS) * time.Millisecond
	req, trigger := newDebouncer(window)
	s.startRebuildWorker(ctx, req)

	scheduler, err := s.startResync(ctx)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() { _ = scheduler.Shutdown() }()
	}

	httpServer := s.startHTTP(ctx)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("HTTP shutdown error", logfields.Error(err))
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (s *Server) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(s.project, ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name, s.project)
		}
	}
	slog.Debug("Change detected", logfields.Path(ev.Name))
	trigger()
}

// startRebuildWorker drains debounced requests. The request channel holds
// one entry, so bursts arriving during a render collapse into a single
// follow-up.
func (s *Server) startRebuildWorker(ctx context.Context, req chan struct{}) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-req:
				slog.Info("Change detected; re-rendering project", logfields.Project(s.project.Dir))
				s.rebuild(ctx, false)
			}
		}
	}()
}

// startResync schedules periodic full renders to catch changes the watcher
// missed, when configured.
func (s *Server) startResync(ctx context.Context) (gocron.Scheduler, error) {
	minutes := s.project.Config.Preview.ResyncMinutes
	if minutes <= 0 {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create resync scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Duration(minutes)*time.Minute),
		gocron.NewTask(func() {
			slog.Info("Periodic resync; full render")
			s.rebuild(ctx, true)
		}),
		gocron.WithName("preview-resync"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule resync: %w", err)
	}
	scheduler.Start()
	return scheduler, nil
}

func (s *Server) rebuild(ctx context.Context, full bool) {
	err := s.queue.Run(ctx, func(ctx context.Context) error {
		return s.build.Rebuild(ctx, full)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("Render failed", logfields.Error(err))
	}
	s.status.set(err)
}

func (s *Server) startHTTP(ctx context.Context) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.project.OutputDir())))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.status.healthy() {
			http.Error(w, "last render failed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.MetricsHandler != nil {
		mux.Handle("/metrics", s.MetricsHandler)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.project.Config.Preview.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Preview server listening",
			slog.String("addr", fmt.Sprintf("http://localhost:%d", s.project.Config.Preview.Port)),
			logfields.Dir(s.project.OutputDir()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server failed", logfields.Error(err))
		}
	}()
	return srv
}
