// Package config reads wire files: the list of repositories a project pulls
// content from, plus optional engine settings.
//
// Three shapes are accepted, in JSON, TOML or YAML:
//
//	{"repositories": [{"url": ..., "branch": ..., "target_path": ..., "filters": [...], "commit_hash": ...}]}
//
//	[wire]
//	entries = [{name = "...", url = "...", rev = "main", src = ["lib"], dst = "vendor/lib", method = "shallow"}]
//
//	[{"name": ..., "url": ..., "rev": ..., "src": ..., "dst": ..., "mtd": ...}]
//
// The last one is the legacy extensionless .gitwire format.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/git/cache"
)

// FileNames are the wire file names Find looks for, in order.
var FileNames = []string{".gitwire.toml", ".gitwire.yaml", ".gitwire.yml", ".gitwire.json", ".gitwire"}

// Entry is one repository to wire.
type Entry struct {
	Name        string   `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`
	URL         string   `mapstructure:"url" json:"url" yaml:"url"`
	Branch      string   `mapstructure:"branch" json:"branch,omitempty" yaml:"branch,omitempty"`
	Commit      string   `mapstructure:"commit_hash" json:"commit_hash,omitempty" yaml:"commit_hash,omitempty"`
	Target      string   `mapstructure:"target_path" json:"target_path" yaml:"target_path"`
	Filters     []string `mapstructure:"filters" json:"filters,omitempty" yaml:"filters,omitempty"`
	Strategy    string   `mapstructure:"strategy" json:"strategy,omitempty" yaml:"strategy,omitempty"`

	// strict also rejects "." components in Target and Filters, as the legacy format did.
	strict bool
}

// wireEntry is the [wire] table and legacy array shape.
type wireEntry struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Dsc         string   `mapstructure:"dsc"`
	URL         string   `mapstructure:"url"`
	Rev         string   `mapstructure:"rev"`
	Src         []string `mapstructure:"src"`
	Dst         string   `mapstructure:"dst"`
	Method      string   `mapstructure:"method"`
	Mtd         string   `mapstructure:"mtd"`
}

func (w wireEntry) entry() Entry {
	e := Entry{
		Name:        w.Name,
		Description: firstNonEmpty(w.Description, w.Dsc),
		URL:         w.URL,
		Target:      w.Dst,
		Filters:     w.Src,
		Strategy:    firstNonEmpty(w.Method, w.Mtd),
		strict:      true,
	}
	// rev names a branch, a tag or a commit. Anything that reads as an
	// abbreviated or full hash is pinned.
	rev := strings.TrimSpace(w.Rev)
	if len(rev) >= 7 && cache.IsHexCommit(strings.ToLower(rev)) {
		e.Commit = rev
	} else {
		e.Branch = rev
	}
	return e
}

// rawFile is the decoded form of every shape.
type rawFile struct {
	Repositories []Entry `mapstructure:"repositories"`
	Wire         struct {
		Entries []wireEntry `mapstructure:"entries"`
	} `mapstructure:"wire"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

// File is a loaded wire file.
type File struct {
	// Path is the file the entries were read from.
	Path string

	Entries []Entry

	// Settings holds the file's [settings] table, applied below flags and
	// environment by ApplySettings.
	Settings map[string]interface{}
}

// Find walks up from dir looking for a wire file. It returns the file and
// the directory containing it, which targets are resolved against.
func Find(dir string) (path, root string, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to resolve directory")
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", "", platformerrors.New(platformerrors.CodeNotFound, "no wire file found in this directory or any parent")
}

// Load reads and validates a wire file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError(err, path, "failed to read wire file")
	}

	raw, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	f := &File{Path: path, Settings: raw.Settings}
	f.Entries = append(f.Entries, raw.Repositories...)
	for _, w := range raw.Wire.Entries {
		f.Entries = append(f.Entries, w.entry())
	}

	if err := f.Validate(); err != nil {
		return nil, platformerrors.WithContext(err, "path", path)
	}
	return f, nil
}

func decode(path string, data []byte) (*rawFile, error) {
	trimmed := bytes.TrimSpace(data)
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	switch format {
	case "toml", "yaml", "yml", "json":
	default:
		// Extensionless files are JSON, or TOML when they are not valid JSON.
		switch {
		case len(trimmed) > 0 && trimmed[0] == '{':
			format = "json"
		case json.Valid(trimmed):
			format = "json"
		default:
			format = "toml"
		}
	}

	raw := &rawFile{}
	if format == "json" && len(trimmed) > 0 && trimmed[0] == '[' {
		var items []map[string]interface{}
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, configError(err, path, "failed to parse wire file")
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: decodeHook(),
			Result:     &raw.Wire.Entries,
		})
		if err != nil {
			return nil, configError(err, path, "failed to parse wire file")
		}
		if err := dec.Decode(items); err != nil {
			return nil, configError(err, path, "failed to parse wire file")
		}
		return raw, nil
	}

	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, configError(err, path, "failed to parse wire file")
	}
	if err := v.Unmarshal(raw, viper.DecodeHook(decodeHook())); err != nil {
		return nil, configError(err, path, "failed to decode wire file")
	}
	return raw, nil
}

func configError(err error, path, msg string) error {
	return platformerrors.WithContext(
		platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, msg),
		"path", path,
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DirectEntry builds an entry from command-line values, with the same
// rev and path rules as a [wire] entry.
func DirectEntry(url, rev string, src []string, dst, method string) Entry {
	return wireEntry{URL: url, Rev: rev, Src: src, Dst: dst, Method: method}.entry()
}
