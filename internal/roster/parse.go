package roster

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
)

// Column names of a roster header. Matching is case-insensitive and
// ignores spaces and underscores.
const (
	ColFirstName = "first_name"
	ColLastName  = "last_name"
	ColSex       = "sex"
	ColBirthDate = "birth_date"
	ColBelt      = "belt"
	ColHeight    = "height"
	ColWeight    = "weight"
)

var headerAliases = map[string]string{
	"firstname": ColFirstName,
	"first":     ColFirstName,
	"lastname":  ColLastName,
	"last":      ColLastName,
	"surname":   ColLastName,
	"sex":       ColSex,
	"gender":    ColSex,
	"birthdate": ColBirthDate,
	"dob":       ColBirthDate,
	"birthday":  ColBirthDate,
	"belt":      ColBelt,
	"rank":      ColBelt,
	"height":    ColHeight,
	"heightcm":  ColHeight,
	"weight":    ColWeight,
	"weightkg":  ColWeight,
}

var required = []string{ColFirstName, ColSex, ColBirthDate}

var dateLayouts = []string{model.DateLayout, "01/02/2006", "1/2/2006", "2006/01/02"}

// RowError describes a roster row that could not be imported. Row is the
// 1-based line in the source file, header included.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Reason) }

// Entry is a parsed roster row.
type Entry struct {
	Row    int          `json:"row"`
	Player model.Player `json:"player"`
}

// Parse maps the header row, validates every data row and returns the valid
// players for teamID together with the rejected rows. A later row with the
// same name and birth date as an earlier one is rejected as a duplicate.
func Parse(rows [][]string, teamID string) ([]Entry, []RowError, error) {
	if len(rows) == 0 {
		return nil, nil, eris.New("roster: empty file")
	}
	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, nil, err
	}

	title := cases.Title(language.Und)
	seen := make(map[string]int)
	var entries []Entry
	var rejected []RowError
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		p, reason := parseRow(row, cols, title)
		if reason != "" {
			rejected = append(rejected, RowError{Row: line, Reason: reason})
			continue
		}
		key := strings.ToLower(p.FirstName + "|" + p.LastName + "|" + p.BirthDate.Format(model.DateLayout))
		if first, dup := seen[key]; dup {
			rejected = append(rejected, RowError{Row: line, Reason: fmt.Sprintf("duplicate of row %d", first)})
			continue
		}
		seen[key] = line
		p.TeamID = teamID
		entries = append(entries, Entry{Row: line, Player: p})
	}
	return entries, rejected, nil
}

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		norm := strings.NewReplacer(" ", "", "_", "", "-", "", "(", "", ")", "").Replace(strings.ToLower(strings.TrimSpace(h)))
		if col, ok := headerAliases[norm]; ok {
			if _, exists := cols[col]; !exists {
				cols[col] = i
			}
		}
	}
	var missing []string
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("roster: header missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// normalizeName collapses whitespace and title-cases words typed entirely in
// one case. Mixed-case words such as McDonald are kept as written.
func normalizeName(s string, title cases.Caser) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == strings.ToLower(w) || w == strings.ToUpper(w) {
			words[i] = title.String(w)
		}
	}
	return strings.Join(words, " ")
}

func parseRow(row []string, cols map[string]int, title cases.Caser) (model.Player, string) {
	var p model.Player

	p.FirstName = normalizeName(cell(row, cols, ColFirstName), title)
	if p.FirstName == "" {
		return p, "first_name is required"
	}
	p.LastName = normalizeName(cell(row, cols, ColLastName), title)

	sex, ok := division.ParseSex(cell(row, cols, ColSex))
	if !ok {
		return p, fmt.Sprintf("unrecognized sex %q", cell(row, cols, ColSex))
	}
	p.Sex = sex

	bd, err := parseDate(cell(row, cols, ColBirthDate))
	if err != nil {
		return p, err.Error()
	}
	p.BirthDate = bd

	if raw := cell(row, cols, ColBelt); raw != "" {
		belt, ok := division.ParseBelt(raw)
		if !ok {
			return p, fmt.Sprintf("unrecognized belt %q", raw)
		}
		p.Belt = belt
	}

	if p.Height, err = parseMeasure(cell(row, cols, ColHeight), ColHeight); err != nil {
		return p, err.Error()
	}
	if p.Weight, err = parseMeasure(cell(row, cols, ColWeight), ColWeight); err != nil {
		return p, err.Error()
	}
	return p, ""
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, eris.New("birth_date is required")
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, eris.Errorf("invalid birth_date %q", s)
}

// parseMeasure returns nil for an empty cell. Values must be finite and
// positive.
func parseMeasure(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return nil, eris.Errorf("invalid %s %q", name, s)
	}
	return &v, nil
}
