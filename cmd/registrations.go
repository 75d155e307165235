package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/registration"
	"github.com/sells-group/tkd-registrar/internal/store"
)

var registrationsCmd = &cobra.Command{
	Use:     "registrations",
	Aliases: []string{"reg"},
	Short:   "Create, inspect and review competition registrations",
}

// -- registrations add --

var registrationsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a player in one or more categories",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		compID, _ := cmd.Flags().GetString("competition")
		playerID, _ := cmd.Flags().GetString("player")
		raw, _ := cmd.Flags().GetStringSlice("category")
		cats := make([]division.Category, len(raw))
		for i, c := range raw {
			cats[i] = division.Category(c)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		regs, err := newService(st).Register(ctx, registration.RegisterRequest{
			CompetitionID: compID,
			PlayerID:      playerID,
			Categories:    cats,
		})
		if len(regs) > 0 {
			formatRegistrations(cmd.OutOrStdout(), regs)
		}
		if err != nil {
			return eris.Wrap(err, "registrations add")
		}
		return nil
	},
}

// -- registrations list --

var registrationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := registrationFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		regs, err := st.ListRegistrations(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "registrations list")
		}
		if format != "table" {
			if regs == nil {
				regs = []model.Registration{}
			}
			return writeStructured(cmd.OutOrStdout(), format, regs)
		}
		if len(regs) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No registrations found.")
			return nil
		}
		formatRegistrations(cmd.OutOrStdout(), regs)
		return nil
	},
}

func registrationFilterFromFlags(cmd *cobra.Command) (store.RegistrationFilter, error) {
	var f store.RegistrationFilter
	f.CompetitionID, _ = cmd.Flags().GetString("competition")
	f.TeamID, _ = cmd.Flags().GetString("team")
	f.PlayerID, _ = cmd.Flags().GetString("player")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	if raw, _ := cmd.Flags().GetString("status"); raw != "" {
		s := model.RegistrationStatus(strings.ToLower(raw))
		if !s.Valid() {
			return f, eris.Errorf("unknown status %q", raw)
		}
		f.Status = s
	}
	if raw, _ := cmd.Flags().GetString("category"); raw != "" {
		c, ok := division.ParseCategory(raw)
		if !ok {
			return f, eris.Errorf("unknown category %q", raw)
		}
		f.Category = c
	}
	return f, nil
}

// -- registrations approve / reject --

func reviewCmd(use string, approve bool) *cobra.Command {
	verb := "Reject"
	if approve {
		verb = "Approve"
	}
	c := &cobra.Command{
		Use:   use + " <registration-id>",
		Short: verb + " a pending registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			by, _ := cmd.Flags().GetString("by")
			note, _ := cmd.Flags().GetString("note")

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			svc := newService(st)
			review := svc.Reject
			if approve {
				review = svc.Approve
			}
			reg, err := review(ctx, args[0], by, note)
			if err != nil {
				return eris.Wrapf(err, "registrations %s", use)
			}
			formatRegistrations(cmd.OutOrStdout(), []model.Registration{*reg})
			return nil
		},
	}
	c.Flags().String("by", "", "reviewer name")
	c.Flags().String("note", "", "review note")
	return c
}

// -- registrations summary --

var registrationsSummaryCmd = &cobra.Command{
	Use:   "summary <competition-id>",
	Short: "Count registrations per division",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := newService(st).Summarize(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "registrations summary")
		}
		if format != "table" {
			return writeStructured(cmd.OutOrStdout(), format, sum)
		}
		formatSummary(cmd.OutOrStdout(), sum)
		return nil
	},
}

func init() {
	registrationsAddCmd.Flags().String("competition", "", "competition id (required)")
	registrationsAddCmd.Flags().String("player", "", "player id (required)")
	registrationsAddCmd.Flags().StringSlice("category", nil, "categories: kyorugi, poomsae, poomsae-team (required)")
	_ = registrationsAddCmd.MarkFlagRequired("competition")
	_ = registrationsAddCmd.MarkFlagRequired("player")
	_ = registrationsAddCmd.MarkFlagRequired("category")

	registrationsListCmd.Flags().String("competition", "", "filter by competition id")
	registrationsListCmd.Flags().String("team", "", "filter by team id")
	registrationsListCmd.Flags().String("player", "", "filter by player id")
	registrationsListCmd.Flags().String("status", "", "filter by status (pending, approved, rejected)")
	registrationsListCmd.Flags().String("category", "", "filter by category")
	registrationsListCmd.Flags().Int("limit", 100, "max number of registrations to display")
	registrationsListCmd.Flags().String("format", "table", "output format: table, json or yaml")

	registrationsSummaryCmd.Flags().String("format", "table", "output format: table, json or yaml")

	registrationsCmd.AddCommand(registrationsAddCmd)
	registrationsCmd.AddCommand(registrationsListCmd)
	registrationsCmd.AddCommand(reviewCmd("approve", true))
	registrationsCmd.AddCommand(reviewCmd("reject", false))
	registrationsCmd.AddCommand(registrationsSummaryCmd)
	rootCmd.AddCommand(registrationsCmd)
}
