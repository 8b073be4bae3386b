package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/wire"
	"github.com/ab22593k/gitai/wire/config"
)

func (c *CLI) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch and extract every entry of the wire file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, _ := cmd.Flags().GetStringSlice("name")
			sequential, _ := cmd.Flags().GetBool("singlethread")

			file, root, err := c.loadProject(cmd)
			if err != nil {
				return err
			}
			requests, err := file.Requests(root, names...)
			if err != nil {
				return err
			}
			return c.runSync(cmd, file, requests, sequential)
		},
	}
	cmd.Flags().StringSliceP("name", "n", nil, "Only wire the entries with these names")
	cmd.Flags().BoolP("singlethread", "s", false, "Fetch and extract sequentially")
	addGCFlag(cmd)
	return cmd
}

func addGCFlag(cmd *cobra.Command) {
	cmd.Flags().Duration("gc-interval", 0, "Prune expired cache entries at this interval while syncing (0 disables)")
}

func (c *CLI) runSync(cmd *cobra.Command, file *config.File, requests []wire.Request, sequential bool) error {
	a, err := c.application(file, sequential)
	if err != nil {
		return err
	}

	if interval, _ := cmd.Flags().GetDuration("gc-interval"); interval > 0 {
		stop := a.StartGC(interval)
		defer stop()
	}

	report, err := a.Sync(cmd.Context(), requests)
	if err != nil {
		return err
	}

	view := newSyncView(report)
	if err := c.render(cmd, view, view.text); err != nil {
		return err
	}

	if view.Failed > 0 {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%d of %d requests failed", view.Failed, len(view.Results))}
	}
	return nil
}

type resultView struct {
	OperationID string                        `json:"operation_id" yaml:"operation_id"`
	Name        string                        `json:"name,omitempty" yaml:"name,omitempty"`
	URL         string                        `json:"url" yaml:"url"`
	Key         string                        `json:"key" yaml:"key"`
	Target      string                        `json:"target" yaml:"target"`
	Commit      string                        `json:"commit,omitempty" yaml:"commit,omitempty"`
	Fetched     bool                          `json:"fetched" yaml:"fetched"`
	Files       int                           `json:"files" yaml:"files"`
	Bytes       int64                         `json:"bytes" yaml:"bytes"`
	Duration    string                        `json:"duration" yaml:"duration"`
	Error       *platformerrors.ErrorResponse `json:"error,omitempty" yaml:"error,omitempty"`
}

type syncView struct {
	Results []resultView `json:"results" yaml:"results"`
	Fetches int          `json:"fetches" yaml:"fetches"`
	Reused  int          `json:"reused" yaml:"reused"`
	Failed  int          `json:"failed" yaml:"failed"`
}

func newSyncView(r *wire.Report) *syncView {
	v := &syncView{Fetches: r.Fetches, Reused: r.Reused, Results: make([]resultView, 0, len(r.Results))}
	for _, res := range r.Results {
		v.Results = append(v.Results, resultView{
			OperationID: res.OperationID,
			Name:        res.Request.Name,
			URL:         res.Request.URL,
			Key:         res.Key.String(),
			Target:      res.Request.Target,
			Commit:      res.Commit,
			Fetched:     res.Fetched,
			Files:       res.Files,
			Bytes:       res.Bytes,
			Duration:    res.Duration.Round(time.Millisecond).String(),
			Error:       platformerrors.ToJSON(res.Err),
		})
		if res.Err != nil {
			v.Failed++
		}
	}
	return v
}

func (v *syncView) text(w io.Writer) {
	for _, r := range v.Results {
		label := r.Name
		if label == "" {
			label = r.URL
		}
		if r.Error != nil {
			fmt.Fprintf(w, "FAIL\t%s\t%s\t%s\n", label, r.Target, errorLabel(r.Error))
			continue
		}
		source := "cached"
		if r.Fetched {
			source = "fetched"
		}
		fmt.Fprintf(w, "ok\t%s\t%s\t%s %s, %d files, %s\n", label, r.Target, source, shortCommit(r.Commit), r.Files, humanBytes(r.Bytes))
	}
	fmt.Fprintf(w, "\n%d requests, %d fetched, %d reused, %d failed\n", len(v.Results), v.Fetches, v.Reused, v.Failed)
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
