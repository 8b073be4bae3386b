package extract

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	platformerrors "github.com/ab22593k/gitai/errors"
)

// File is one planned copy.
type File struct {
	// Source is the path relative to the checkout root.
	Source string

	// Target is the path relative to the target root.
	Target string

	Size int64
	Mode os.FileMode
}

// Plan is the set of files a filter list selects, ordered by target path.
type Plan struct {
	Files []File
}

// Bytes returns the total size of the planned files.
func (p *Plan) Bytes() int64 {
	var n int64
	for _, f := range p.Files {
		n += f.Size
	}
	return n
}

// BuildPlan maps the files under src selected by filters to target paths:
//   - a directory filter keeps each file's repository-relative path
//   - a filter naming a file places it at the target root under its base name
//   - glob matches keep their repository-relative path
//   - no filters select every file
//
// .git, symlinks and irregular files are never selected. When two filters
// map to the same target path the later filter wins. A filter that selects
// nothing fails with FILTER_MATCHES_NOTHING.
func BuildPlan(fs billy.Filesystem, src string, filters []Filter) (*Plan, error) {
	files, err := listFiles(fs, src)
	if err != nil {
		return nil, platformerrors.WithContext(
			platformerrors.Wrap(err, platformerrors.CodeCacheCorrupted, "failed to read checkout"),
			"source", src,
		)
	}

	byTarget := make(map[string]File)
	add := func(f File, target string) {
		f.Target = target
		byTarget[target] = f
	}

	if len(filters) == 0 {
		for _, f := range files {
			add(f, f.Source)
		}
	}

	for _, filter := range filters {
		matched := 0
		for _, f := range files {
			switch {
			case filter.IsGlob():
				if !filter.Match(f.Source) {
					continue
				}
				add(f, f.Source)
			case filter.Path == "":
				add(f, f.Source)
			case f.Source == filter.Path:
				add(f, path.Base(f.Source))
			case strings.HasPrefix(f.Source, filter.Path+"/"):
				add(f, f.Source)
			default:
				continue
			}
			matched++
		}

		if matched == 0 {
			return nil, platformerrors.WithContextMap(
				platformerrors.Newf(platformerrors.CodeFilterMatchesNothing, "filter %q matches nothing", filter.Raw),
				map[string]interface{}{"filter": filter.Raw, "source": src},
			)
		}
	}

	plan := &Plan{Files: make([]File, 0, len(byTarget))}
	for _, f := range byTarget {
		plan.Files = append(plan.Files, f)
	}
	sort.Slice(plan.Files, func(i, j int) bool { return plan.Files[i].Target < plan.Files[j].Target })
	return plan, nil
}

// listFiles returns the regular files under root in lexical order, skipping .git.
func listFiles(fs billy.Filesystem, root string) ([]File, error) {
	var files []File
	err := util.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() == ".git" && p != root {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, File{
			Source: filepath.ToSlash(rel),
			Size:   info.Size(),
			Mode:   info.Mode().Perm(),
		})
		return nil
	})
	return files, err
}
