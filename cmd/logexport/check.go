package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"logexport/internal/accesslog"
	"logexport/internal/stream"
)

func newCheckCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "check [-n lines] <file>",
		Short: "Show how the first lines of a log file are parsed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			r, err := stream.Open(path, stream.CodecFor(path))
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer r.Close()
			out := cmd.OutOrStdout()
			for i := 0; i < n; i++ {
				line, err := r.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				rec, ok := accesslog.Parse(line)
				if !ok {
					fmt.Fprintln(out, "no match:", line)
					continue
				}
				fmt.Fprintf(out, "%q %q %q %q %q %q %q %q\n", rec.RemoteAddr, rec.RemoteUser, rec.TimeLocal,
					rec.Request, rec.Status, rec.BodyBytesSent, rec.HTTPReferer, rec.HTTPUserAgent)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 10, "number of lines to check")
	return cmd
}
