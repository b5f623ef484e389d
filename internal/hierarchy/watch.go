package hierarchy

import (
	"context"
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the Ruleset whenever its backing file changes, until ctx
// is cancelled. Reload failures are logged and the previous mapping
// stays in effect — a half-edited config file must never take down the
// server.
//
// Returns immediately with nil if the Ruleset has no backing file.
func (rs *Ruleset) Watch(ctx context.Context) error {
	if rs.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(rs.path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := rs.Reload(); err != nil {
					log.Printf("WARNING: hierarchy config reload: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WARNING: hierarchy config watch: %v", err)
			}
		}
	}()

	return nil
}
