package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ab22593k/gitai/wire"
	"github.com/ab22593k/gitai/wire/config"
)

func addDirectFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("url", "u", "", "Repository URL")
	cmd.Flags().StringP("rev", "r", "", "Branch, tag or commit (default: remote default branch)")
	cmd.Flags().StringSliceP("src", "s", nil, "Paths or patterns to copy (default: everything)")
	cmd.Flags().StringP("dst", "d", "", "Target directory, relative to the working directory")
	cmd.Flags().StringP("method", "m", "", "Checkout strategy: shallow, shallow_no_sparse or partial")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("dst")
}

// directRequest builds a single request from the direct-mode flags.
func directRequest(cmd *cobra.Command) (wire.Request, error) {
	url, _ := cmd.Flags().GetString("url")
	rev, _ := cmd.Flags().GetString("rev")
	src, _ := cmd.Flags().GetStringSlice("src")
	dst, _ := cmd.Flags().GetString("dst")
	method, _ := cmd.Flags().GetString("method")

	entry := config.DirectEntry(url, rev, src, dst, method)
	if err := entry.Validate(); err != nil {
		return wire.Request{}, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return wire.Request{}, err
	}
	target, err := config.ResolveTarget(wd, entry.Target)
	if err != nil {
		return wire.Request{}, err
	}

	req := entry.Request()
	req.Target = target
	return req, nil
}

func (c *CLI) newDirectSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "direct-sync",
		Short: "Wire one repository given on the command line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := directRequest(cmd)
			if err != nil {
				return err
			}
			return c.runSync(cmd, nil, []wire.Request{req}, false)
		},
	}
	addDirectFlags(cmd)
	addGCFlag(cmd)
	return cmd
}

func (c *CLI) newDirectCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "direct-check",
		Short: "Check one repository given on the command line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := directRequest(cmd)
			if err != nil {
				return err
			}
			remote, _ := cmd.Flags().GetBool("remote")
			return c.runCheck(cmd, nil, []wire.Request{req}, wire.CheckOptions{Remote: remote})
		},
	}
	addDirectFlags(cmd)
	cmd.Flags().Bool("remote", false, "Ask the remote whether its branch moved")
	return cmd
}
