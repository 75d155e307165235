package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tkd-registrar/internal/model"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage teams",
}

var teamCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a team and print its id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := strings.TrimSpace(args[0])
		if name == "" {
			return eris.New("team name is required")
		}
		coach, _ := cmd.Flags().GetString("coach")
		email, _ := cmd.Flags().GetString("email")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		team, err := st.CreateTeam(ctx, model.Team{Name: name, Coach: coach, Email: email})
		if err != nil {
			return eris.Wrap(err, "team create")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), team.ID)
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List teams",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		teams, err := st.ListTeams(ctx)
		if err != nil {
			return eris.Wrap(err, "team list")
		}
		formatTeams(cmd.OutOrStdout(), teams)
		return nil
	},
}

func init() {
	teamCreateCmd.Flags().String("coach", "", "coach name")
	teamCreateCmd.Flags().String("email", "", "contact email")

	teamCmd.AddCommand(teamCreateCmd)
	teamCmd.AddCommand(teamListCmd)
	rootCmd.AddCommand(teamCmd)
}
