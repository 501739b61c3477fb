// Package watch replans a session whenever its occupancy map file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"car-planner/internal/mapio"
	"car-planner/internal/planner"
	"car-planner/internal/se2"
	"car-planner/internal/search"
)

// DefaultDebounce is how long the map file must stay quiet before a reload.
const DefaultDebounce = 200 * time.Millisecond

// Update is the outcome of one reload.
type Update struct {
	Changed  int
	Path     search.Path[se2.Pose]
	PlanErr  error
	Files    []string
	CMapFile string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithOutDir renders the path and primitives to dir after every reload.
func WithOutDir(dir string) Option { return func(w *Watcher) { w.outDir = dir } }

// WithSaveCMap rewrites the cached configuration map after every reload.
func WithSaveCMap(on bool) Option { return func(w *Watcher) { w.saveCMap = on } }

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(w *Watcher) { w.log = l } }

// WithLock shares a lock with other users of the session.
func WithLock(l sync.Locker) Option { return func(w *Watcher) { w.lock = l } }

// OnUpdate registers a callback invoked after every successful reload.
func OnUpdate(fn func(Update)) Option { return func(w *Watcher) { w.onUpdate = fn } }

// Watcher reloads the occupancy map of a session from disk.
type Watcher struct {
	session  *planner.Session
	path     string
	outDir   string
	saveCMap bool
	debounce time.Duration
	log      *slog.Logger
	lock     sync.Locker
	onUpdate func(Update)
	fw       *fsnotify.Watcher
}

// New creates a watcher for the occupancy map file of session.
func New(session *planner.Session, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		session:  session,
		path:     filepath.Clean(session.Params().Map),
		debounce: DefaultDebounce,
		log:      slog.Default(),
		lock:     &sync.Mutex{},
		fw:       fw,
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Run watches the map until ctx is cancelled. The parent directory is
// watched so that editors replacing the file are noticed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()
	dir := filepath.Dir(w.path)
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.log.Info("watching occupancy map", "path", w.path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)

		case <-timer.C:
			u, err := w.Reload(ctx)
			if err != nil {
				w.log.Warn("reload failed", "path", w.path, "error", err)
				continue
			}
			if w.onUpdate != nil {
				w.onUpdate(u)
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// Reload reads the map file, rasterizes the session obstacles onto it, applies the differences to the session and
// replans when start and goal are set.
func (w *Watcher) Reload(ctx context.Context) (Update, error) {
	p := w.session.Params()
	next, err := mapio.LoadOccupancy(w.path, [2]float64{p.OCS[1], p.OCS[2]})
	if err != nil {
		return Update{}, err
	}
	if p.Obstacles != "" {
		polys, err := mapio.LoadObstacles(p.Obstacles)
		if err != nil {
			return Update{}, err
		}
		mapio.Rasterize(next, polys)
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	var u Update
	if u.Changed, err = w.session.ApplyOccupancy(next); err != nil {
		return Update{}, err
	}
	w.log.Info("reloaded occupancy map", "path", w.path, "changed", u.Changed)

	if p.HasStart() && p.HasGoal() {
		u.Path, u.PlanErr = w.session.Plan(ctx)
	}
	if w.outDir != "" {
		if u.Files, err = w.session.Render(w.outDir); err != nil {
			return u, err
		}
	}
	if w.saveCMap && u.Changed > 0 {
		if u.CMapFile, err = w.session.SaveCMap(); err != nil {
			return u, err
		}
	}
	return u, nil
}
