package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/registration"
)

// writeStructured encodes v as json or yaml.
func writeStructured(out io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("unsupported format: %s", format)
	}
}

// formatRegistrations writes a tabular list of registrations to w.
func formatRegistrations(out io.Writer, regs []model.Registration) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPLAYER\tCATEGORY\tGROUP\tLEVEL\tSTATUS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t--------\t-----\t-----\t------\t-------")
	for _, r := range regs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			truncateID(r.PlayerID),
			r.Category,
			r.Group,
			r.Level,
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatCompetitions writes a tabular list of competitions to w.
func formatCompetitions(out io.Writer, comps []model.Competition) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tDATE\tLOCATION\tOPEN")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t--------\t----")
	for _, c := range comps {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			c.ID,
			c.Name,
			c.EventDate.Format(model.DateLayout),
			c.Location,
			c.RegistrationOpen,
		)
	}
	_ = w.Flush()
}

// formatTeams writes a tabular list of teams to w.
func formatTeams(out io.Writer, teams []model.Team) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCOACH")
	_, _ = fmt.Fprintln(w, "--\t----\t-----")
	for _, t := range teams {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.Coach)
	}
	_ = w.Flush()
}

// formatSummary writes per-division registration counts to w.
func formatSummary(out io.Writer, s *registration.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tGROUP\tPENDING\tAPPROVED\tREJECTED\tTOTAL")
	_, _ = fmt.Fprintln(w, "--------\t-----\t-------\t--------\t--------\t-----")
	for _, d := range s.Divisions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			d.Category, d.Group, d.Pending, d.Approved, d.Rejected, d.Total())
	}
	_, _ = fmt.Fprintf(w, "\t\t\t\tTotal:\t%d\n", s.Total)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
