package extract

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Diff lists how a target differs from what extraction would produce.
// Paths are relative to the target root.
type Diff struct {
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	Extra   []string `json:"extra,omitempty" yaml:"extra,omitempty"`
	Changed []string `json:"changed,omitempty" yaml:"changed,omitempty"`
}

// Empty reports whether the target is up to date.
func (d *Diff) Empty() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0 && len(d.Changed) == 0
}

// Compare reports the differences between target and the extraction of src
// with filters, without writing anything.
func (e *Extractor) Compare(src, target string, filters []Filter) (*Diff, error) {
	plan, err := BuildPlan(e.fs, src, filters)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool)
	if _, err := e.fs.Stat(target); err == nil {
		files, err := listFiles(e.fs, target)
		if err != nil {
			return nil, ioError(err, target, "failed to read target")
		}
		for _, f := range files {
			existing[f.Source] = true
		}
	} else if !os.IsNotExist(err) {
		return nil, ioError(err, target, "failed to stat target")
	}

	diff := &Diff{}
	for _, f := range plan.Files {
		if !existing[f.Target] {
			diff.Missing = append(diff.Missing, f.Target)
			continue
		}
		delete(existing, f.Target)

		same, err := e.sameContent(
			filepath.Join(src, filepath.FromSlash(f.Source)),
			filepath.Join(target, filepath.FromSlash(f.Target)),
		)
		if err != nil {
			return nil, err
		}
		if !same {
			diff.Changed = append(diff.Changed, f.Target)
		}
	}

	for rel := range existing {
		diff.Extra = append(diff.Extra, rel)
	}
	sort.Strings(diff.Extra)

	return diff, nil
}

func (e *Extractor) sameContent(a, b string) (bool, error) {
	infoA, err := e.fs.Stat(a)
	if err != nil {
		return false, ioError(err, a, "failed to stat file")
	}
	infoB, err := e.fs.Stat(b)
	if err != nil {
		return false, ioError(err, b, "failed to stat file")
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	da, err := e.digest(a)
	if err != nil {
		return false, err
	}
	db, err := e.digest(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

func (e *Extractor) digest(path string) (uint64, error) {
	f, err := e.fs.Open(path)
	if err != nil {
		return 0, ioError(err, path, "failed to open file")
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, ioError(err, path, "failed to read file")
	}
	return h.Sum64(), nil
}

// Digest returns the xxhash digest of every file under root, keyed by
// slash-separated relative path. .git is skipped.
func (e *Extractor) Digest(root string) (map[string]uint64, error) {
	files, err := listFiles(e.fs, root)
	if err != nil {
		return nil, ioError(err, root, "failed to read directory")
	}
	out := make(map[string]uint64, len(files))
	for _, f := range files {
		d, err := e.digest(filepath.Join(root, filepath.FromSlash(f.Source)))
		if err != nil {
			return nil, err
		}
		out[f.Source] = d
	}
	return out, nil
}
