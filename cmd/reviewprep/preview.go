package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"reviewprep/internal/adapters/ingest/jsonl"
	"reviewprep/internal/platform/config"
)

func newPreviewCmd() *cobra.Command {
	var n, width int
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Print the first lines of a JSONL file, gzip aware",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rd, err := jsonl.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, rd.Close()) }()

			if width <= 0 {
				width = config.New().MayInt("COLUMNS", 120)
			}
			return writePreview(cmd.OutOrStdout(), rd, n, width)
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 5, "lines to show")
	cmd.Flags().IntVar(&width, "width", 0, "display width; defaults to $COLUMNS or 120")
	return cmd
}

type lineSource interface {
	Next() (jsonl.Line, error)
}

// writePreview prints up to n lines, each cut to width display cells
func writePreview(w io.Writer, src lineSource, n, width int) error {
	for range n {
		ln, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		prefix := fmt.Sprintf("%6d  ", ln.No)
		room := max(width-len(prefix), 1)
		text := string(ln.Bytes)
		if ln.Err != nil {
			text = "<" + ln.Err.Error() + ">"
		}
		if _, err := fmt.Fprintln(w, prefix+runewidth.Truncate(text, room, "…")); err != nil {
			return err
		}
	}
	return nil
}
