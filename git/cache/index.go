package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/util"
)

const metadataVersion = "1"

// metadataFile is the on-disk form of one entry.
type metadataFile struct {
	Version string `json:"version"`
	Entry   *Entry `json:"entry"`
}

// load walks the cache root and reads every metadata file. Unreadable or
// foreign files are logged and skipped. Entries left in a transient state by
// an interrupted fetch are demoted to NotCached.
func (s *Store) load() error {
	return util.Walk(s.fs, s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			// Entry directories sit directly under the root; never descend into a worktree.
			if path != s.root && filepath.Dir(path) != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() != metadataFileName {
			return nil
		}

		entry, err := s.readMetadata(path)
		if err != nil {
			s.logger.Warn("ignoring unreadable cache metadata", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(s.root, filepath.Dir(path))
		if err != nil || filepath.ToSlash(rel) != entry.Key.Path() {
			s.logger.Warn("ignoring misplaced cache metadata", "path", path, "key", entry.Key.String())
			return nil
		}

		if entry.State.Transient() {
			s.logger.Info("discarding interrupted cache entry", "key", entry.Key.String(), "state", entry.State)
			entry.State = StateNotCached
		}
		entry.Path = s.CheckoutPath(entry.Key)
		s.entries[entry.Key] = entry
		return nil
	})
}

func (s *Store) readMetadata(path string) (*Entry, error) {
	data, err := util.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta metadataFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file: %w", err)
	}
	if meta.Version != metadataVersion {
		return nil, fmt.Errorf("unsupported metadata version: %s (expected %s)", meta.Version, metadataVersion)
	}
	if meta.Entry == nil || meta.Entry.Key.IsZero() {
		return nil, fmt.Errorf("metadata file has no entry")
	}
	return meta.Entry, nil
}

// save writes the metadata of entry atomically.
func (s *Store) save(entry *Entry) error {
	dir := s.entryDir(entry.Key)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache entry directory: %w", err)
	}

	data, err := json.MarshalIndent(metadataFile{Version: metadataVersion, Entry: entry}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(dir, metadataFileName)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	tmpFile, err := s.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary metadata file: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary metadata file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary metadata file: %w", err)
	}

	// Rename to final path (atomic on POSIX systems)
	if err := s.fs.Rename(tmpPath, path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}

	return nil
}

// dirSize sums the sizes of regular files under path. A missing path has size zero.
func (s *Store) dirSize(path string) (int64, error) {
	var size int64
	err := util.Walk(s.fs, path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// entrySize is the disk usage of one entry: its checkout and metadata.
func (s *Store) entrySize(key Key) (int64, error) {
	size, err := s.dirSize(s.CheckoutPath(key))
	if err != nil {
		return 0, err
	}
	if info, err := s.fs.Stat(filepath.Join(s.entryDir(key), metadataFileName)); err == nil {
		size += info.Size()
	}
	return size, nil
}
