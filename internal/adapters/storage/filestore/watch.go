package filestore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evanschultz/ucm/internal/app"
)

const watchDebounce = 150 * time.Millisecond

// Watch reloads the store whenever a TOML file under the root is created, edited or removed by another process.
// onChange receives the reload result after each settled burst of events. Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(error)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return app.StorageFailure(backendName, "watch", s.root, err)
	}
	defer fw.Close()

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return app.StorageFailure(backendName, "watch", s.root, err)
	}

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				_ = fw.Add(event.Name)
				continue
			}
			if !isRecordFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = true
				timer.Reset(watchDebounce)
			}
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			err := s.Reload()
			if onChange != nil {
				onChange(err)
			}
		case _, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			// Watch errors are not fatal; the next event triggers a full reload anyway.
		}
	}
}

func isRecordFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, fileExt) && !strings.Contains(base, ".tmp-")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
