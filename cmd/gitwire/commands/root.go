// Package commands implements the gitwire command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire"
	"github.com/ab22593k/gitai/wire/app"
	"github.com/ab22593k/gitai/wire/config"
)

//go:generate go run github.com/matryer/moq@latest -out mocks/application.go -pkg mocks . Application

// Application is what the commands drive. *app.App implements it.
type Application interface {
	Sync(ctx context.Context, requests []wire.Request) (*wire.Report, error)
	Check(ctx context.Context, requests []wire.Request, opts wire.CheckOptions) (*wire.CheckReport, error)
	Prune(opts app.PruneOptions) ([]cache.Key, error)
	Clear() ([]cache.Key, error)
	Stats() (*cache.Stats, error)
	Entries() []*cache.Entry
	StartGC(interval time.Duration) (stop func())
}

// Factory builds the Application once settings are known.
type Factory func(settings config.Settings, logger *slog.Logger) (Application, error)

// DefaultFactory builds an *app.App.
func DefaultFactory(settings config.Settings, logger *slog.Logger) (Application, error) {
	return app.New(settings, app.WithLogger(logger))
}

// CLI is the gitwire command tree.
type CLI struct {
	root    *cobra.Command
	v       *viper.Viper
	factory Factory
	stdout  io.Writer
	stderr  io.Writer

	logger    *slog.Logger
	logCloser io.Closer
}

// Option configures a CLI.
type Option func(*CLI)

// WithFactory replaces how the Application is built. Used for testing.
func WithFactory(f Factory) Option {
	return func(c *CLI) {
		c.factory = f
	}
}

// WithOutput sets the writers for results and diagnostics.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *CLI) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// New builds the command tree.
func New(opts ...Option) *CLI {
	c := &CLI{
		v:       viper.New(),
		factory: DefaultFactory,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	root := &cobra.Command{
		Use:           "gitwire",
		Short:         "Wire slices of remote git repositories into this project",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setupLogging(cmd)
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Wire file (default: nearest .gitwire file)")
	flags.String("cache-dir", config.DefaultCacheDir(), "Cache root directory")
	flags.Int("workers", config.DefaultWorkers, "Concurrent fetches and extractions (1 is sequential)")
	flags.Duration("ttl", 0, "Refetch cached repositories older than this (0 disables)")
	flags.Duration("timeout", config.DefaultTimeout, "Network timeout per fetch")
	flags.String("lock-dir", "", "Directory for cross-process cache locks")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("log-file", "", "Write logs to this file, rotated")
	flags.StringP("output", "o", string(formatText), "Output format: text, json or yaml")

	config.Configure(c.v)
	for key, flag := range map[string]string{
		config.KeyCacheDir: "cache-dir",
		config.KeyWorkers:  "workers",
		config.KeyTTL:      "ttl",
		config.KeyTimeout:  "timeout",
		config.KeyLockDir:  "lock-dir",
	} {
		_ = c.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		c.newSyncCmd(),
		c.newCheckCmd(),
		c.newDirectSyncCmd(),
		c.newDirectCheckCmd(),
		c.newCacheCmd(),
		c.newVersionCmd(),
	)

	c.root = root
	return c
}

// Execute runs the command line with ctx.
func (c *CLI) Execute(ctx context.Context) error {
	defer c.closeLog()
	return c.root.ExecuteContext(ctx)
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.root.SetArgs(args)
}

func (c *CLI) closeLog() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
}

// loadProject reads the wire file named by --config, or the nearest one
// above the working directory. root is the directory targets resolve against.
func (c *CLI) loadProject(cmd *cobra.Command) (file *config.File, root string, err error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path, root, err = config.Find(".")
		if err != nil {
			return nil, "", err
		}
	} else {
		if path, err = filepath.Abs(path); err != nil {
			return nil, "", err
		}
		root = filepath.Dir(path)
	}

	file, err = config.Load(path)
	if err != nil {
		return nil, "", err
	}
	c.logger.Debug("loaded wire file", "path", path, "entries", len(file.Entries))
	return file, root, nil
}

// application resolves settings and builds the Application. File settings
// sit below flags and environment.
func (c *CLI) application(file *config.File, sequential bool) (Application, error) {
	if file != nil {
		file.ApplySettings(c.v)
	}
	settings, err := config.LoadSettings(c.v)
	if err != nil {
		return nil, err
	}
	if sequential {
		settings.Workers = 1
	}
	return c.factory(settings, c.logger)
}
