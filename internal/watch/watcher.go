package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"taxbuddy/config"
	"taxbuddy/records"
)

// Watcher monitors the drop directory for case-record CSVs and imports them
// into the store as they land, so a resolve on the next turn sees the update.
type Watcher struct {
	cfg   config.Config
	store *records.Store
}

func New(cfg config.Config, store *records.Store) *Watcher {
	return &Watcher{cfg: cfg, store: store}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && isCSV(evt.Name) {
					w.importFile(ctx, evt.Name)
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.cfg.DropDir)
}

// Backfill imports CSVs already present in the drop directory.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.cfg.DropDir, "*.csv"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		w.importFile(ctx, e)
	}
	return nil
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	n, err := w.store.ImportCSV(ctx, path)
	if err != nil {
		log.Printf("import %s failed: %v", filepath.Base(path), err)
		return
	}
	log.Printf("imported %d record rows from %s", n, filepath.Base(path))
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
