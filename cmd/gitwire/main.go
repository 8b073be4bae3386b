// Package main is the entry point for gitwire.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ab22593k/gitai/cmd/gitwire/commands"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer, opts ...commands.Option) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New(append([]commands.Option{commands.WithOutput(stdout, stderr)}, opts...)...)
	cli.SetArgs(args)

	err := cli.Execute(ctx)
	code := commands.ExitCode(err)
	if err != nil {
		var exitErr *commands.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			fmt.Fprintln(stderr, "Error:", err)
		}
	}
	return code
}
