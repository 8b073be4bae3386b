// Package extract copies a filtered subset of a checkout into a target
// directory and compares checkouts against targets.
//
// Extraction only reads the checkout. The target is rebuilt in a staging
// directory next to it and swapped in with a rename, so a failed extraction
// leaves the previous target content untouched and a successful one never
// merges with stale files.
package extract

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"

	platformerrors "github.com/ab22593k/gitai/errors"
)

// Extractor copies files between a checkout and a target on one filesystem.
type Extractor struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFilesystem sets the filesystem. Defaults to the OS filesystem rooted
// at "/", so paths must be absolute.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(e *Extractor) {
		e.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New returns an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		fs:     osfs.New("/"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes one extraction.
type Result struct {
	Target string `json:"target" yaml:"target"`
	Files  int    `json:"files" yaml:"files"`
	Bytes  int64  `json:"bytes" yaml:"bytes"`
}

// Extract replaces target with the files of src selected by filters.
// Nothing is written when a filter matches nothing.
func (e *Extractor) Extract(ctx context.Context, src, target string, filters []Filter) (*Result, error) {
	start := time.Now()

	plan, err := BuildPlan(e.fs, src, filters)
	if err != nil {
		return nil, err
	}

	staging := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".gitwire-"+uuid.NewString())
	if err := e.fs.MkdirAll(staging, 0o755); err != nil {
		return nil, ioError(err, target, "failed to create staging directory")
	}

	if err := e.copyAll(ctx, src, staging, plan); err != nil {
		if rmErr := util.RemoveAll(e.fs, staging); rmErr != nil {
			e.logger.Warn("failed to remove staging directory", "path", staging, "error", rmErr)
		}
		return nil, err
	}

	if err := util.RemoveAll(e.fs, target); err != nil {
		_ = util.RemoveAll(e.fs, staging)
		return nil, ioError(err, target, "failed to clear target")
	}
	if err := e.fs.Rename(staging, target); err != nil {
		_ = util.RemoveAll(e.fs, staging)
		return nil, ioError(err, target, "failed to move staging directory into place")
	}

	res := &Result{Target: target, Files: len(plan.Files), Bytes: plan.Bytes()}
	e.logger.Debug("extracted", "source", src, "target", target, "files", res.Files, "duration", time.Since(start))
	return res, nil
}

func (e *Extractor) copyAll(ctx context.Context, src, dst string, plan *Plan) error {
	for _, f := range plan.Files {
		if err := ctx.Err(); err != nil {
			return platformerrors.Wrap(err, platformerrors.CodeTimeout, "extraction canceled")
		}
		from := filepath.Join(src, filepath.FromSlash(f.Source))
		to := filepath.Join(dst, filepath.FromSlash(f.Target))
		if err := e.copyFile(from, to, f.Mode); err != nil {
			return ioError(err, to, "failed to copy "+f.Source)
		}
	}
	return nil
}

func (e *Extractor) copyFile(from, to string, mode os.FileMode) error {
	in, err := e.fs.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := e.fs.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	out, err := e.fs.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func ioError(err error, path, msg string) error {
	return platformerrors.WithContext(
		platformerrors.Wrap(err, platformerrors.CodeExtractIO, msg),
		"path", path,
	)
}
