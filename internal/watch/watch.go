// Package watch polls an input directory and hands each file it finds to
// the validation engine, moving it to a processed or rejected directory
// afterward.
//
// github.com/robfig/cron/v3 drives the poll tick instead of a bare
// time.Sleep loop, giving the poll interval a uniform, testable schedule
// expression and a Start/Stop lifecycle.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/anthropics/tinyvalid/internal/engine"
)

// Dirs names the three directories the watcher cycles files through.
type Dirs struct {
	Input     string
	Processed string
	Rejected  string
}

// EnsureDirs creates any of d's directories that do not already exist.
func (d Dirs) EnsureDirs() error {
	for _, dir := range []string{d.Input, d.Processed, d.Rejected} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("watch: create %s: %w", dir, err)
		}
	}
	return nil
}

// Watcher polls Dirs.Input on a cron schedule and runs every regular file
// it finds through an engine.Engine.
type Watcher struct {
	Dirs   Dirs
	Engine *engine.Engine
	Logger *log.Logger

	cron *cron.Cron
	mu   sync.Mutex
}

// New creates a Watcher. schedule is a cron expression; "@every 1s"
// gives a fixed one-second poll interval.
func New(dirs Dirs, eng *engine.Engine, logger *log.Logger, schedule string) (*Watcher, error) {
	w := &Watcher{
		Dirs:   dirs,
		Engine: eng,
		Logger: logger,
		cron:   cron.New(cron.WithSeconds()),
	}
	if _, err := w.cron.AddFunc(schedule, w.tick); err != nil {
		return nil, fmt.Errorf("watch: invalid schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start begins polling in the background.
func (w *Watcher) Start() error {
	if err := w.Dirs.EnsureDirs(); err != nil {
		return err
	}
	w.cron.Start()
	return nil
}

// Stop halts polling and waits for any in-flight tick to finish.
func (w *Watcher) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

// tick lists regular files in the input directory and processes each in
// turn, one file at a time.
func (w *Watcher) tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := os.ReadDir(w.Dirs.Input)
	if err != nil {
		w.logf("watch: read %s: %v", w.Dirs.Input, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.Dirs.Input, entry.Name())
		w.processOne(path)
	}
}

func (w *Watcher) processOne(path string) {
	result, err := w.Engine.ProcessFile(path)
	if err != nil {
		w.logf("watch: %s: %v", path, err)
		w.move(path, w.Dirs.Rejected)
		return
	}
	switch result.Outcome {
	case engine.OutcomePassed:
		w.move(path, w.Dirs.Processed)
	case engine.OutcomeFailed:
		w.move(path, w.Dirs.Rejected)
	default:
		w.logf("watch: %s skipped or unprocessable, moving to rejected", path)
		w.move(path, w.Dirs.Rejected)
	}
}

// move relocates a file into destDir, disambiguating a name collision with
// a timestamp suffix.
func (w *Watcher) move(path, destDir string) {
	name := filepath.Base(path)
	dest := filepath.Join(destDir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		base := name[:len(name)-len(ext)]
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%s%s", base, time.Now().Format("20060102150405"), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		w.logf("watch: move %s -> %s: %v", path, dest, err)
	}
}

func (w *Watcher) logf(format string, args ...any) {
	if w.Logger != nil {
		w.Logger.Printf(format, args...)
	}
}
