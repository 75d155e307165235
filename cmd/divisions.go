package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/tkd-registrar/internal/division"
)

var divisionsCmd = &cobra.Command{
	Use:   "divisions",
	Short: "Print the Kyorugi and Poomsae division tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		tables := division.Tables()
		bands := division.PoomsaeBands()
		if format == "table" {
			formatDivisionTables(cmd.OutOrStdout(), tables, bands, cfg.Classify)
			return nil
		}
		return writeStructured(cmd.OutOrStdout(), format, map[string]any{
			"kyorugi": tables,
			"poomsae": bands,
		})
	},
}

// formatDivisionTables writes every band table to w, one block per table.
func formatDivisionTables(out io.Writer, tables []division.Table, bands []division.AgeBand, opts division.Options) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, t := range tables {
		_, _ = fmt.Fprintf(w, "Kyorugi %s %s (age <= %s, by %s)\n", t.Bracket, t.Sex, ageBound(t.MaxAge), t.Basis)
		unit, cmp := "kg", "<="
		if t.Basis == division.ByHeight {
			unit, cmp = "cm", "<"
		}
		for _, b := range t.Bands {
			limit := "any"
			if !math.IsInf(b.Max, 1) {
				limit = fmt.Sprintf("%s %s %s", cmp, strconv.FormatFloat(b.Max, 'f', -1, 64), unit)
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", limit, b.Label)
		}
		_ = w.Flush()
		_, _ = fmt.Fprintln(out)
	}

	_, _ = fmt.Fprintln(w, "Poomsae")
	for _, b := range bands {
		_, _ = fmt.Fprintf(w, "  age <= %d\t%s\n", b.MaxAge, b.Label)
	}
	if opts.AdultPoomsaeGroup {
		_, _ = fmt.Fprintf(w, "  older\t%s\n", division.AdultGroup)
	}
	_ = w.Flush()
}

func ageBound(n int) string {
	if n == math.MaxInt {
		return "any"
	}
	return strconv.Itoa(n)
}

func init() {
	divisionsCmd.Flags().String("format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(divisionsCmd)
}
