package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/roster"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a team roster from CSV or XLSX",
	Long: `Reads a roster with header first_name,last_name,sex,birth_date,belt,height,weight
and upserts the players into a team. Invalid rows are reported and skipped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("file")
		sheet, _ := cmd.Flags().GetString("sheet")
		teamID, _ := cmd.Flags().GetString("team")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		rawAsOf, _ := cmd.Flags().GetString("as-of")

		asOf := time.Now()
		if rawAsOf != "" {
			d, err := time.Parse(model.DateLayout, rawAsOf)
			if err != nil {
				return eris.Wrapf(err, "invalid --as-of %q", rawAsOf)
			}
			asOf = d
		}

		rows, err := roster.ReadFile(path, sheet)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if _, err := st.GetTeam(ctx, teamID); err != nil {
			return eris.Wrapf(err, "import: team %s", teamID)
		}

		im := newImporter(st)
		if dryRun {
			im = im.DryRun()
		}
		report, err := im.Import(ctx, teamID, rows, asOf)
		if report != nil {
			formatImportReport(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return eris.Wrap(err, "import roster")
		}

		zap.L().Info("import complete",
			zap.String("file", path),
			zap.Bool("dry_run", dryRun),
			zap.Int("imported", report.Imported),
		)
		return nil
	},
}

// formatImportReport writes per-player divisions and rejected rows to w.
func formatImportReport(out io.Writer, r *roster.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tNAME\tAGE\tLEVEL\tDIVISIONS")
	_, _ = fmt.Fprintln(w, "---\t----\t---\t-----\t---------")
	for _, l := range r.Lines {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", l.Row, l.Name, l.Age, l.Level, l.Label)
	}
	_ = w.Flush()

	for _, e := range r.Rejected {
		_, _ = fmt.Fprintf(out, "rejected %s\n", e.Error())
	}
	_, _ = fmt.Fprintf(out, "rows: %d, imported: %d, rejected: %d\n", r.Rows, r.Imported, len(r.Rejected))
}

func init() {
	importCmd.Flags().String("file", "", "roster file, .csv or .xlsx (required)")
	importCmd.Flags().String("sheet", "", "xlsx sheet name (default first sheet)")
	importCmd.Flags().String("team", "", "team id (required)")
	importCmd.Flags().Bool("dry-run", false, "validate and classify without writing")
	importCmd.Flags().String("as-of", "", "date ages are computed on, YYYY-MM-DD (default today)")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("team")
	rootCmd.AddCommand(importCmd)
}
