package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/store"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "Inspect players",
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the players of a team",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		teamID, _ := cmd.Flags().GetString("team")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		players, err := st.ListPlayers(ctx, store.PlayerFilter{TeamID: teamID, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "player list")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tSEX\tBORN\tBELT\tLEVEL")
		_, _ = fmt.Fprintln(w, "--\t----\t---\t----\t----\t-----")
		for _, p := range players {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.ID, p.FullName(), p.Sex, p.BirthDate.Format(model.DateLayout), p.Belt, division.BeltLevel(p.Belt))
		}
		return w.Flush()
	},
}

var playerPreviewCmd = &cobra.Command{
	Use:   "preview <player-id>",
	Short: "Show the divisions a player would be placed in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		compID, _ := cmd.Flags().GetString("competition")
		format, _ := cmd.Flags().GetString("format")
		cats, err := categoriesFlag(cmd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := newService(st).Preview(ctx, args[0], compID, cats)
		if err != nil {
			return eris.Wrap(err, "player preview")
		}
		if format != "text" {
			return writeStructured(cmd.OutOrStdout(), format, p)
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "age: %d, level: %s\n", p.Age, p.Level)
		for _, d := range p.Divisions {
			_, _ = fmt.Fprintf(out, "%-13s %-13s %s\n", d.Category, d.Outcome, d.Division)
		}
		_, _ = fmt.Fprintf(out, "label: %s\n", p.Label)
		return nil
	},
}

func init() {
	playerListCmd.Flags().String("team", "", "team id (required)")
	playerListCmd.Flags().Int("limit", 500, "max number of players to display")
	_ = playerListCmd.MarkFlagRequired("team")

	playerPreviewCmd.Flags().String("competition", "", "competition whose event date ages are taken on (default today)")
	playerPreviewCmd.Flags().StringSlice("category", nil, "categories to classify (default all)")
	playerPreviewCmd.Flags().String("format", "text", "output format: text, json or yaml")

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerPreviewCmd)
	rootCmd.AddCommand(playerCmd)
}
