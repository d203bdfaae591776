package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"
)

func newPreviewCmd(a *app) *cobra.Command {
	var (
		page         int
		output       string
		verification bool
		annotate     annotateFlags
	)
	cmd := &cobra.Command{
		Use:   "preview <document.yaml>",
		Short: "Render one page with its redactions to PNG",
		Long: `Renders a page as it will look after export. With --verification the
regions are drawn translucent and outlined so the content beneath them can be
checked before exporting.`,
		Example: `  redact preview statement.yaml --page 2 -s "123-45-6789" -o page2.png
  redact preview statement.yaml --page 2 -s Balance --verification -o audit.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := annotate.apply(cmd, s, a.cfg.DefaultColor()); err != nil {
				return err
			}
			s.SetVerificationMode(verification)
			img, err := s.Preview(cmd.Context(), page-1)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("page-%d.png", page)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create preview: %w", err)
			}
			if err := png.Encode(f, img); err != nil {
				f.Close()
				return fmt.Errorf("encode preview: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successMark.Sprint("✓"), "Wrote", highlight.Sprint(output))
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number to render, starting at 1")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PNG path (default: page-N.png)")
	cmd.Flags().BoolVar(&verification, "verification", false, "draw regions translucent with an outline")
	annotate.register(cmd)
	return cmd
}
