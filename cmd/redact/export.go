package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/OPWeb-ui/EZtify-sub000/export"
	"github.com/OPWeb-ui/EZtify-sub000/observability"
	"github.com/OPWeb-ui/EZtify-sub000/report"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		output     string
		reportPath string
		allowEmpty bool
		annotate   annotateFlags
	)
	cmd := &cobra.Command{
		Use:   "export <document.yaml>",
		Short: "Redact a document and write the secure output",
		Long: `Applies the requested redactions and writes a new document.

Each page carrying a redaction is flattened into a single image with the
regions painted over. Other pages are copied unchanged.`,
		Example: `  redact export statement.yaml -s "123-45-6789" -o out.pdf
  redact export statement.yaml -r "2:10,20,60,6:black:SSN" --report audit.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			added, err := annotate.apply(cmd, s, a.cfg.DefaultColor())
			if err != nil {
				return err
			}
			if added == 0 && !allowEmpty {
				return errors.New("nothing to redact: pass --search or --region, or --allow-empty to copy the document")
			}
			a.logger.Info("annotations applied", observability.Int("count", added))

			job, err := s.ExportSecure(ctx)
			if err != nil {
				return err
			}
			prog := startProgress("Exporting...", a.quiet())
			for ev := range job.Events() {
				if ev.PageIndex < ev.Total {
					prog.update(fmt.Sprintf("page %d/%d: %s", ev.PageIndex+1, ev.Total, ev.Phase))
				} else {
					prog.update(ev.Phase.String())
				}
			}
			res, err := job.Wait()
			if err != nil {
				prog.stop()
				return err
			}

			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), res.Filename)
			}
			if err := writeResult(output, res); err != nil {
				prog.stop()
				return err
			}
			if reportPath != "" {
				r := report.Build(res, job.Pages(), time.Now())
				if err := writeReport(reportPath, r); err != nil {
					prog.stop()
					return err
				}
			}

			msg := fmt.Sprintf("%s Wrote %s (%d pages, %d flattened)", successMark.Sprint("✓"),
				highlight.Sprint(output), res.Pages, len(res.Flattened()))
			if reportPath != "" {
				msg += "\n" + infoMark.Sprint("→") + " Report: " + highlight.Sprint(reportPath)
			}
			prog.done(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: <name>-redacted.pdf next to the input)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write an HTML audit report to this path")
	cmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "export even when no region was requested")
	annotate.register(cmd)
	return cmd
}

func writeResult(path string, res *export.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := res.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

func writeReport(path string, r report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := r.WriteHTML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
