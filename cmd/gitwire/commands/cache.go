package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ab22593k/gitai/git/cache"
	"github.com/ab22593k/gitai/wire/app"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the repository cache",
	}
	cmd.AddCommand(
		c.newCachePruneCmd(),
		c.newCacheClearCmd(),
		c.newCacheStatsCmd(),
		c.newCacheListCmd(),
	)
	return cmd
}

type removedView struct {
	Removed []string `json:"removed" yaml:"removed"`
}

func newRemovedView(keys []cache.Key) *removedView {
	v := &removedView{Removed: make([]string, 0, len(keys))}
	for _, k := range keys {
		v.Removed = append(v.Removed, k.String())
	}
	return v
}

func (v *removedView) text(w io.Writer) {
	for _, k := range v.Removed {
		fmt.Fprintf(w, "removed\t%s\n", k)
	}
	fmt.Fprintf(w, "%d entries removed\n", len(v.Removed))
}

func (c *CLI) newCachePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove expired, old or excess cache entries",
		Long: "Remove cache entries that are expired, not used for --older-than, or that\n" +
			"push the cache over --max-size (oldest first). With no flag, expired entries\n" +
			"are removed. Entries in use are never removed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			expired, _ := cmd.Flags().GetBool("expired")
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			maxSize, _ := cmd.Flags().GetInt64("max-size")

			a, err := c.application(nil, false)
			if err != nil {
				return err
			}
			keys, err := a.Prune(app.PruneOptions{Expired: expired, OlderThan: olderThan, MaxSize: maxSize})
			if err != nil {
				return err
			}
			view := newRemovedView(keys)
			return c.render(cmd, view, view.text)
		},
	}
	cmd.Flags().Bool("expired", false, "Remove expired entries")
	cmd.Flags().Duration("older-than", 0, "Remove entries not used for this long")
	cmd.Flags().Int64("max-size", 0, "Shrink the cache to this many bytes")
	return cmd
}

func (c *CLI) newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(nil, false)
			if err != nil {
				return err
			}
			keys, err := a.Clear()
			if err != nil {
				return err
			}
			view := newRemovedView(keys)
			return c.render(cmd, view, view.text)
		},
	}
}

func (c *CLI) newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(nil, false)
			if err != nil {
				return err
			}
			stats, err := a.Stats()
			if err != nil {
				return err
			}
			return c.render(cmd, stats, func(w io.Writer) {
				fmt.Fprintf(w, "entries\t%d\n", stats.Entries)
				fmt.Fprintf(w, "in use\t%d\n", stats.InUse)
				fmt.Fprintf(w, "size\t%s\n", humanBytes(stats.TotalSize))
				for _, state := range []cache.State{cache.StateAvailable, cache.StateExpired, cache.StateNotCached} {
					if n := stats.ByState[state]; n > 0 {
						fmt.Fprintf(w, "%s\t%d\n", state, n)
					}
				}
				if stats.OldestFetch != nil {
					fmt.Fprintf(w, "oldest fetch\t%s\n", stats.OldestFetch.Format(time.RFC3339))
				}
				if stats.NewestFetch != nil {
					fmt.Fprintf(w, "newest fetch\t%s\n", stats.NewestFetch.Format(time.RFC3339))
				}
			})
		},
	}
}

type entryView struct {
	Key         string    `json:"key" yaml:"key"`
	URL         string    `json:"url" yaml:"url"`
	Path        string    `json:"path" yaml:"path"`
	Commit      string    `json:"commit,omitempty" yaml:"commit,omitempty"`
	State       string    `json:"state" yaml:"state"`
	Strategy    string    `json:"strategy" yaml:"strategy"`
	Paths       []string  `json:"paths,omitempty" yaml:"paths,omitempty"`
	LastFetched time.Time `json:"last_fetched" yaml:"last_fetched"`
	LastAccess  time.Time `json:"last_access" yaml:"last_access"`
}

func (c *CLI) newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(nil, false)
			if err != nil {
				return err
			}
			views := make([]entryView, 0)
			for _, e := range a.Entries() {
				views = append(views, entryView{
					Key:         e.Key.String(),
					URL:         e.RemoteURL,
					Path:        e.Path,
					Commit:      e.Commit,
					State:       string(e.State),
					Strategy:    string(e.Coverage.Strategy),
					Paths:       e.Coverage.Paths,
					LastFetched: e.LastFetched,
					LastAccess:  e.LastAccess,
				})
			}
			return c.render(cmd, views, func(w io.Writer) {
				for _, v := range views {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.State, v.Key, shortCommit(v.Commit), v.Strategy)
				}
			})
		},
	}
}
