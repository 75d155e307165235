package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tkd-registrar/internal/division"
)

var beltCmd = &cobra.Command{
	Use:   "belt [rank...]",
	Short: "Show the skill level for belt ranks (all ranks when none given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		belts := division.Belts
		if len(args) > 0 {
			belts = make([]division.Belt, 0, len(args))
			for _, a := range args {
				b, ok := division.ParseBelt(a)
				if !ok {
					return eris.Errorf("unknown belt %q", a)
				}
				belts = append(belts, b)
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, b := range belts {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", b, division.BeltLevel(b))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(beltCmd)
}
