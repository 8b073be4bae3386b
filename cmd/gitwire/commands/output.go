package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	platformerrors "github.com/ab22593k/gitai/errors"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(strings.ToLower(s)); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "yml":
		return formatYAML, nil
	}
	return "", platformerrors.WithContext(
		platformerrors.New(platformerrors.CodeInvalidInput, "invalid output format"),
		"format", s,
	)
}

// render writes value as JSON or YAML, or calls text for the text format.
func (c *CLI) render(cmd *cobra.Command, value interface{}, text func(w io.Writer)) error {
	raw, _ := cmd.Flags().GetString("output")
	f, err := parseFormat(raw)
	if err != nil {
		return err
	}

	switch f {
	case formatJSON:
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case formatYAML:
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		text(tw)
		return tw.Flush()
	}
}

// errorLabel renders an error for text output, marking failures that may
// succeed on a later run.
func errorLabel(e *platformerrors.ErrorResponse) string {
	if platformerrors.ErrorClassification(e.Classification).IsRetryable() {
		return e.Message + " (retryable)"
	}
	return e.Message
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
