package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/wire"
	"github.com/ab22593k/gitai/wire/config"
	"github.com/ab22593k/gitai/wire/extract"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report what sync would fetch or change, without writing",
		Long: "Report, per repository, whether sync would fetch, refresh or reuse the cache,\n" +
			"and how each target differs from the cached content. Exits 2 when sync would\n" +
			"change anything.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, _ := cmd.Flags().GetStringSlice("name")
			remote, _ := cmd.Flags().GetBool("remote")

			file, root, err := c.loadProject(cmd)
			if err != nil {
				return err
			}
			requests, err := file.Requests(root, names...)
			if err != nil {
				return err
			}
			return c.runCheck(cmd, file, requests, wire.CheckOptions{Remote: remote})
		},
	}
	cmd.Flags().StringSliceP("name", "n", nil, "Only check the entries with these names")
	cmd.Flags().Bool("remote", false, "Ask each remote whether its branch moved")
	return cmd
}

func (c *CLI) runCheck(cmd *cobra.Command, file *config.File, requests []wire.Request, opts wire.CheckOptions) error {
	a, err := c.application(file, false)
	if err != nil {
		return err
	}

	report, err := a.Check(cmd.Context(), requests, opts)
	if err != nil {
		return err
	}

	view := newCheckView(report)
	if err := c.render(cmd, view, view.text); err != nil {
		return err
	}

	if report.Changed() {
		return &ExitError{Code: ExitChanged}
	}
	return nil
}

type requestCheckView struct {
	Name   string                        `json:"name,omitempty" yaml:"name,omitempty"`
	Target string                        `json:"target" yaml:"target"`
	Diff   *extract.Diff                 `json:"diff,omitempty" yaml:"diff,omitempty"`
	Error  *platformerrors.ErrorResponse `json:"error,omitempty" yaml:"error,omitempty"`
}

type keyCheckView struct {
	Key          string                        `json:"key" yaml:"key"`
	URL          string                        `json:"url" yaml:"url"`
	Action       wire.Action                   `json:"action" yaml:"action"`
	Reason       string                        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Commit       string                        `json:"commit,omitempty" yaml:"commit,omitempty"`
	RemoteCommit string                        `json:"remote_commit,omitempty" yaml:"remote_commit,omitempty"`
	Error        *platformerrors.ErrorResponse `json:"error,omitempty" yaml:"error,omitempty"`
	Requests     []requestCheckView            `json:"requests" yaml:"requests"`
}

type checkView struct {
	Keys    []keyCheckView `json:"keys" yaml:"keys"`
	Changed bool           `json:"changed" yaml:"changed"`
}

func newCheckView(r *wire.CheckReport) *checkView {
	v := &checkView{Changed: r.Changed()}
	for _, k := range r.Keys {
		kv := keyCheckView{
			Key:          k.Key.String(),
			URL:          k.URL,
			Action:       k.Action,
			Reason:       string(k.Reason),
			Commit:       k.Commit,
			RemoteCommit: k.RemoteCommit,
			Error:        platformerrors.ToJSON(k.Err),
		}
		for _, rc := range k.Requests {
			kv.Requests = append(kv.Requests, requestCheckView{
				Name:   rc.Request.Name,
				Target: rc.Request.Target,
				Diff:   rc.Diff,
				Error:  platformerrors.ToJSON(rc.Err),
			})
		}
		v.Keys = append(v.Keys, kv)
	}
	return v
}

func (v *checkView) text(w io.Writer) {
	for _, k := range v.Keys {
		switch {
		case k.Error != nil:
			fmt.Fprintf(w, "error\t%s\t%s\n", k.Key, errorLabel(k.Error))
		case k.Reason != "":
			fmt.Fprintf(w, "%s\t%s\t(%s)\n", k.Action, k.Key, k.Reason)
		default:
			fmt.Fprintf(w, "%s\t%s\t%s\n", k.Action, k.Key, shortCommit(k.Commit))
		}

		for _, r := range k.Requests {
			switch {
			case r.Error != nil:
				fmt.Fprintf(w, "  error\t%s\t%s\n", r.Target, errorLabel(r.Error))
			case r.Diff == nil:
				fmt.Fprintf(w, "  pending\t%s\n", r.Target)
			case r.Diff.Empty():
				fmt.Fprintf(w, "  up to date\t%s\n", r.Target)
			default:
				fmt.Fprintf(w, "  differs\t%s\t%s\n", r.Target, diffSummary(r.Diff))
			}
		}
	}
	if v.Changed {
		fmt.Fprintln(w, "\nsync would change this project")
	} else {
		fmt.Fprintln(w, "\neverything is up to date")
	}
}

func diffSummary(d *extract.Diff) string {
	var parts []string
	if n := len(d.Missing); n > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", n))
	}
	if n := len(d.Changed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d changed", n))
	}
	if n := len(d.Extra); n > 0 {
		parts = append(parts, fmt.Sprintf("%d extra", n))
	}
	return strings.Join(parts, ", ")
}
