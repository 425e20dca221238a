package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/evanschultz/ucm/internal/app"
)

// renameFile is swapped by tests to simulate a failure half way through a commit.
var renameFile = os.Rename

// journalEntry remembers the content a file had before the commit touched it.
type journalEntry struct {
	path    string
	prev    []byte
	existed bool
}

// commit writes every dirty entity of next and removes the files of entities that no longer exist. On failure the
// files touched so far are restored and the returned error matches app.ErrStorageIO.
func (s *Store) commit(prev, next *state, dirty map[entityKey]struct{}) error {
	var journal []journalEntry
	touched := map[string]struct{}{}
	remember := func(rel string) error {
		if _, ok := touched[rel]; ok {
			return nil
		}
		data, err := os.ReadFile(filepath.Join(s.root, rel))
		switch {
		case err == nil:
			journal = append(journal, journalEntry{path: rel, prev: data, existed: true})
		case errors.Is(err, fs.ErrNotExist):
			journal = append(journal, journalEntry{path: rel})
		default:
			return err
		}
		touched[rel] = struct{}{}
		return nil
	}
	fail := func(op, rel string, err error) error {
		if rbErr := s.rollback(journal); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return app.StorageFailure(backendName, op, rel, err)
	}

	written := map[string]struct{}{}
	var removals []string
	for _, key := range orderedKeys(dirty) {
		oldPath, hadOld := prev.paths[key]
		newPath, exists := next.pathFor(key)
		if exists {
			data, err := next.encode(key)
			if err != nil {
				return fail("encode", newPath, err)
			}
			if err := remember(newPath); err != nil {
				return fail("read", newPath, err)
			}
			if err := writeFileAtomic(filepath.Join(s.root, newPath), data); err != nil {
				return fail("write", newPath, err)
			}
			written[newPath] = struct{}{}
			next.paths[key] = newPath
		} else {
			delete(next.paths, key)
		}
		if hadOld && (!exists || oldPath != newPath) {
			removals = append(removals, oldPath)
		}
	}

	for _, rel := range removals {
		if _, ok := written[rel]; ok {
			continue
		}
		if err := remember(rel); err != nil {
			return fail("read", rel, err)
		}
		if err := os.Remove(filepath.Join(s.root, rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fail("remove", rel, err)
		}
	}
	s.pruneDirs(removals)
	return nil
}

// rollback restores journal entries in reverse order.
func (s *Store) rollback(journal []journalEntry) error {
	var errs []error
	for i := len(journal) - 1; i >= 0; i-- {
		entry := journal[i]
		abs := filepath.Join(s.root, entry.path)
		if entry.existed {
			if err := writeFileAtomic(abs, entry.prev); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pruneDirs removes scenario and category directories left empty by removals.
func (s *Store) pruneDirs(removed []string) {
	dirs := map[string]struct{}{}
	for _, rel := range removed {
		if !strings.HasPrefix(filepath.ToSlash(rel), useCaseDir+"/") {
			continue
		}
		if strings.Count(filepath.ToSlash(rel), "/") == 2 {
			// A removed use case file also leaves its scenario directory behind.
			dirs[strings.TrimSuffix(rel, fileExt)] = struct{}{}
		}
		for dir := filepath.Dir(rel); dir != useCaseDir && dir != "."; dir = filepath.Dir(dir) {
			dirs[dir] = struct{}{}
		}
	}
	ordered := make([]string, 0, len(dirs))
	for dir := range dirs {
		ordered = append(ordered, dir)
	}
	// Deepest first so a category directory is tried after its use case directories.
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	for _, dir := range ordered {
		_ = os.Remove(filepath.Join(s.root, dir))
	}
}

// writeFileAtomic writes data to a unique temp file beside path, syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := renameFile(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// orderedKeys sorts dirty keys so commits touch files in a stable order: actors, use cases, then scenarios.
func orderedKeys(dirty map[entityKey]struct{}) []entityKey {
	rank := map[entityKind]int{kindActor: 0, kindUseCase: 1, kindScenario: 2}
	keys := make([]entityKey, 0, len(dirty))
	for key := range dirty {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].kind != keys[j].kind {
			return rank[keys[i].kind] < rank[keys[j].kind]
		}
		return keys[i].id < keys[j].id
	})
	return keys
}
