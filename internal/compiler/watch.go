package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/saop-labs/saop/internal/logging"
)

// DefaultDebounce is how long the watcher waits for a burst of filesystem
// events to settle before recompiling.
const DefaultDebounce = 250 * time.Millisecond

// Watcher recompiles the report whenever a listed file, or the list itself,
// changes on disk.
type Watcher struct {
	Compiler *Compiler
	// Load returns the current file list. It is called before every
	// compilation so edits to a manifest file take effect.
	Load func() ([]string, error)
	// ManifestPath is watched in addition to the listed files. Optional.
	ManifestPath string
	Debounce     time.Duration
	// OnCompile is called after every compilation attempt.
	OnCompile func(*Summary, error)
	Logger    *zap.Logger
}

// Run compiles once, then blocks recompiling on change until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.OrNop(w.Logger)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	watched := map[string]bool{}
	files := w.rebuild(fw, watched)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(files, ev.Name) {
				continue
			}
			log.Debug("change detected", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			files = w.rebuild(fw, watched)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", zap.Error(err))
		}
	}
}

// rebuild reloads the file list, watches any new directories, then
// compiles. Directories are registered first so no change made after the
// report is delivered can be missed.
func (w *Watcher) rebuild(fw *fsnotify.Watcher, watched map[string]bool) []string {
	files, err := w.Load()
	if err != nil {
		w.addDirs(fw, watched, nil)
		w.report(nil, fmt.Errorf("loading file list: %w", err))
		return nil
	}
	w.addDirs(fw, watched, files)
	summary, err := w.Compiler.Compile(files)
	w.report(summary, err)
	return files
}

func (w *Watcher) report(s *Summary, err error) {
	if w.OnCompile != nil {
		w.OnCompile(s, err)
	}
}

// addDirs watches the parent directory of every listed file, since editors
// commonly replace files rather than write them in place.
func (w *Watcher) addDirs(fw *fsnotify.Watcher, watched map[string]bool, files []string) {
	log := logging.OrNop(w.Logger)

	paths := make([]string, 0, len(files)+1)
	for _, f := range files {
		paths = append(paths, w.abs(f))
	}
	if w.ManifestPath != "" {
		paths = append(paths, w.abs(w.ManifestPath))
	}

	for _, p := range paths {
		dir := filepath.Dir(p)
		if watched[dir] {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fw.Add(dir); err != nil {
			log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		watched[dir] = true
	}
}

func (w *Watcher) relevant(files []string, name string) bool {
	name = filepath.Clean(name)
	if name == w.outputPath() {
		return false
	}
	if w.ManifestPath != "" && name == w.abs(w.ManifestPath) {
		return true
	}
	for _, f := range files {
		if name == w.abs(f) {
			return true
		}
	}
	return false
}

func (w *Watcher) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	dir := w.Compiler.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return filepath.Join(dir, p)
}

func (w *Watcher) outputPath() string {
	out := w.Compiler.Output
	if out == "" {
		out = DefaultOutput
	}
	return w.abs(out)
}
