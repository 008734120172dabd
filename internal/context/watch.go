package context

import (
	gocontext "context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the new state each time the context state file is
// written, until ctx is cancelled. The current state, if any, is delivered
// first.
func (t *Tracker) Watch(ctx gocontext.Context, fn func(State)) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", t.dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: atomic writes replace the file via rename.
	if err := w.Add(t.dir); err != nil {
		return fmt.Errorf("watch %s: %w", t.dir, err)
	}

	if s, err := t.Get(); err == nil && s != nil {
		fn(*s)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != StateFile {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s, err := t.Get()
			if err != nil {
				t.logf("warning: read context state: %v", err)
				continue
			}
			if s != nil {
				fn(*s)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", t.dir, err)
		}
	}
}
