package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tkd-registrar/internal/model"
)

var competitionCmd = &cobra.Command{
	Use:     "competition",
	Aliases: []string{"comp"},
	Short:   "Manage competitions",
}

// -- competition create --

var competitionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a competition and print its id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		name := strings.TrimSpace(args[0])
		if name == "" {
			return eris.New("competition name is required")
		}
		rawDate, _ := cmd.Flags().GetString("date")
		date, err := time.Parse(model.DateLayout, rawDate)
		if err != nil {
			return eris.Wrapf(err, "invalid --date %q", rawDate)
		}
		location, _ := cmd.Flags().GetString("location")
		open, _ := cmd.Flags().GetBool("open")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		comp, err := st.CreateCompetition(ctx, model.Competition{
			Name:             name,
			Location:         location,
			EventDate:        date,
			RegistrationOpen: open,
		})
		if err != nil {
			return eris.Wrap(err, "competition create")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), comp.ID)
		return nil
	},
}

// -- competition list --

var competitionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List competitions, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		comps, err := st.ListCompetitions(ctx)
		if err != nil {
			return eris.Wrap(err, "competition list")
		}
		formatCompetitions(cmd.OutOrStdout(), comps)
		return nil
	},
}

// -- competition open / close --

func setOpenCmd(use string, open bool) *cobra.Command {
	verb := "Close"
	if open {
		verb = "Open"
	}
	return &cobra.Command{
		Use:   use + " <competition-id>",
		Short: verb + " registration for a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			if err := st.SetCompetitionOpen(ctx, args[0], open); err != nil {
				return eris.Wrapf(err, "competition %s", use)
			}
			zap.L().Info("competition updated",
				zap.String("competition_id", args[0]),
				zap.Bool("registration_open", open),
			)
			return nil
		},
	}
}

// -- competition reclassify --

var competitionReclassifyCmd = &cobra.Command{
	Use:   "reclassify <competition-id>",
	Short: "Recompute divisions of pending registrations from current player data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := newService(st).Reclassify(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "competition reclassify")
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "checked: %d, updated: %d, unresolved: %d\n",
			report.Checked, report.Updated, len(report.Unresolved))
		for _, u := range report.Unresolved {
			_, _ = fmt.Fprintf(out, "unresolved %s player %s %s: %s\n",
				truncateID(u.RegistrationID), truncateID(u.PlayerID), u.Category, u.Outcome)
		}
		return nil
	},
}

func init() {
	competitionCreateCmd.Flags().String("date", "", "event date, YYYY-MM-DD (required)")
	competitionCreateCmd.Flags().String("location", "", "venue")
	competitionCreateCmd.Flags().Bool("open", false, "open registration immediately")
	_ = competitionCreateCmd.MarkFlagRequired("date")

	competitionCmd.AddCommand(competitionCreateCmd)
	competitionCmd.AddCommand(competitionListCmd)
	competitionCmd.AddCommand(setOpenCmd("open", true))
	competitionCmd.AddCommand(setOpenCmd("close", false))
	competitionCmd.AddCommand(competitionReclassifyCmd)
	rootCmd.AddCommand(competitionCmd)
}
