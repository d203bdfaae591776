package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <document.yaml> <text>",
		Short: "List every occurrence of a text in a document",
		Example: `  redact search statement.yaml "123-45-6789"
  redact search statement.yaml Balance --verbose`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			matches, err := s.Search(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, infoMark.Sprint("→"), "no matches for", highlight.Sprint(args[1]))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PAGE\tREGION\tTEXT")
			for _, m := range matches {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", m.PageIndex+1, muted.Sprint(m.Region), m.Text)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, successMark.Sprint("✓"), len(matches), "matches")
			return nil
		},
	}
}
