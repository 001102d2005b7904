package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const recordSuffix = ".json"
const journalName = "journal.wal"

// journal is the write-ahead image of a pending batch. It is written
// atomically before any record is touched, so a crash mid-batch is recovered
// by replaying it on the next open.
type journal struct {
	Put    map[string]json.RawMessage `json:"put"`
	Delete []string                   `json:"delete"`
}

// FileStore persists each record as a JSON file inside a run directory.
// Every write goes through a temporary file followed by a rename, so no
// reader ever observes a zero-length or partially written record.
type FileStore struct {
	dir string
}

// NewFileStore opens (creating if absent) a file store rooted at dir and
// replays any pending batch journal left behind by a crash.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	fs := &FileStore{dir: dir}
	if err := fs.recoverJournal(); err != nil {
		return nil, err
	}

	return fs, nil
}

// Dir returns the directory the store is rooted at.
func (fs *FileStore) Dir() string { return fs.dir }

func (fs *FileStore) recordPath(name string) string {
	return filepath.Join(fs.dir, name+recordSuffix)
}

func (fs *FileStore) Get(name string, v interface{}) error {
	data, err := os.ReadFile(fs.recordPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Error{Op: "get", Record: name, Err: ErrNotFound}
		}
		return &Error{Op: "get", Record: name, Err: err}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &Error{Op: "get", Record: name, Err: fmt.Errorf("corrupt record: %w", err)}
	}

	return nil
}

func (fs *FileStore) Put(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &Error{Op: "put", Record: name, Err: err}
	}

	if err := fs.writeAtomic(fs.recordPath(name), data); err != nil {
		return &Error{Op: "put", Record: name, Err: err}
	}

	return nil
}

func (fs *FileStore) Delete(name string) error {
	if err := os.Remove(fs.recordPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &Error{Op: "delete", Record: name, Err: err}
	}
	return nil
}

func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), recordSuffix))
	}

	return names, nil
}

// Commit writes the batch through a journal: the journal file lands
// atomically first, then the records are applied, then the journal is
// removed. A crash at any point leaves either nothing applied and a replayable
// journal, or everything applied.
func (fs *FileStore) Commit(batch Batch) error {
	j := journal{Put: map[string]json.RawMessage{}, Delete: batch.Delete}
	for name, v := range batch.Put {
		data, err := json.Marshal(v)
		if err != nil {
			return &Error{Op: "commit", Record: name, Err: err}
		}
		j.Put[name] = data
	}

	journalData, err := json.Marshal(j)
	if err != nil {
		return &Error{Op: "commit", Err: err}
	}

	journalPath := filepath.Join(fs.dir, journalName)
	if err := fs.writeAtomic(journalPath, journalData); err != nil {
		return &Error{Op: "commit", Err: err}
	}

	if err := fs.applyJournal(&j); err != nil {
		return err
	}

	if err := os.Remove(journalPath); err != nil {
		return &Error{Op: "commit", Err: err}
	}

	return nil
}

func (fs *FileStore) applyJournal(j *journal) error {
	for name, data := range j.Put {
		if err := fs.writeAtomic(fs.recordPath(name), data); err != nil {
			return &Error{Op: "commit", Record: name, Err: err}
		}
	}

	for _, name := range j.Delete {
		if err := fs.Delete(name); err != nil {
			return err
		}
	}

	return nil
}

func (fs *FileStore) recoverJournal() error {
	journalPath := filepath.Join(fs.dir, journalName)
	data, err := os.ReadFile(journalPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &Error{Op: "recover", Err: err}
	}

	j := &journal{}
	if err := json.Unmarshal(data, j); err != nil {
		return &Error{Op: "recover", Err: fmt.Errorf("corrupt journal: %w", err)}
	}

	if err := fs.applyJournal(j); err != nil {
		return err
	}

	return os.Remove(journalPath)
}

// writeAtomic writes data to a temporary file in the target directory, forces
// it to stable storage and renames it into place.
func (fs *FileStore) writeAtomic(path string, data []byte) error {
	dir, name := filepath.Split(path)
	tmpfile, err := os.CreateTemp(dir, fmt.Sprintf("%s-*.tmp", name))
	if err != nil {
		return err
	}

	tmpname := tmpfile.Name()
	defer func() {
		tmpfile.Close()
		os.Remove(tmpname)
	}()

	if _, err := tmpfile.Write(data); err != nil {
		return err
	}

	if err := tmpfile.Chmod(0o644); err != nil {
		return err
	}

	if err := tmpfile.Sync(); err != nil {
		return err
	}

	if err := tmpfile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpname, path)
}
