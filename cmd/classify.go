package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/roster"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Place a competitor, or a CSV of competitors, into divisions",
	Long: `Runs the division engine without touching the database.

Single competitor:
  tkd-registrar classify --age 12 --sex f --height 150 --weight 41.5

Batch (header: name,age,sex,height,weight; name/height/weight optional):
  tkd-registrar classify --csv players.csv --format yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cats, err := categoriesFlag(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		classifier := division.NewClassifier(cfg.Classify)
		out := cmd.OutOrStdout()

		if path, _ := cmd.Flags().GetString("csv"); path != "" {
			lines, err := classifyFile(classifier, path, cats)
			if err != nil {
				return err
			}
			if format == "csv" || format == "text" {
				return writeClassifyCSV(out, lines)
			}
			return writeStructured(out, format, lines)
		}

		in, err := inputFromFlags(cmd)
		if err != nil {
			return err
		}
		res := classifySingle(classifier, in, cats)
		if format == "text" {
			for _, d := range res.Divisions {
				_, _ = fmt.Fprintf(out, "%-13s %-13s %s\n", d.Category, d.Outcome, d.Label)
			}
			_, _ = fmt.Fprintf(out, "label: %s\n", res.Label)
			return nil
		}
		if format == "csv" {
			return writeClassifyCSV(out, []classifyLine{{Row: 1, Age: in.Age, Sex: in.Sex, Label: res.Label}})
		}
		return writeStructured(out, format, res)
	},
}

type categoryResult struct {
	Category division.Category `json:"category" yaml:"category"`
	Outcome  string            `json:"outcome" yaml:"outcome"`
	Label    string            `json:"label,omitempty" yaml:"label,omitempty"`
}

type singleResult struct {
	Input     division.Input   `json:"input" yaml:"input"`
	Divisions []categoryResult `json:"divisions" yaml:"divisions"`
	Label     string           `json:"label" yaml:"label"`
}

// classifyLine is one row of batch output.
type classifyLine struct {
	Row   int          `json:"row" yaml:"row"`
	Name  string       `json:"name,omitempty" yaml:"name,omitempty"`
	Age   int          `json:"age" yaml:"age"`
	Sex   division.Sex `json:"sex" yaml:"sex"`
	Label string       `json:"label" yaml:"label"`
	Error string       `json:"error,omitempty" yaml:"error,omitempty"`
}

func categoriesFlag(cmd *cobra.Command) ([]division.Category, error) {
	raw, _ := cmd.Flags().GetStringSlice("category")
	if len(raw) == 0 {
		return division.Categories, nil
	}
	cats := make([]division.Category, 0, len(raw))
	for _, r := range raw {
		c, ok := division.ParseCategory(r)
		if !ok {
			return nil, eris.Errorf("unknown category %q", r)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

func inputFromFlags(cmd *cobra.Command) (division.Input, error) {
	var in division.Input
	if !cmd.Flags().Changed("age") {
		return in, eris.New("--age is required (or use --csv)")
	}
	in.Age, _ = cmd.Flags().GetInt("age")

	rawSex, _ := cmd.Flags().GetString("sex")
	sex, ok := division.ParseSex(rawSex)
	if !ok {
		return in, eris.Errorf("unknown sex %q", rawSex)
	}
	in.Sex = sex

	if cmd.Flags().Changed("height") {
		h, _ := cmd.Flags().GetFloat64("height")
		in.Height = &h
	}
	if cmd.Flags().Changed("weight") {
		w, _ := cmd.Flags().GetFloat64("weight")
		in.Weight = &w
	}
	return in, nil
}

func classifySingle(c division.Classifier, in division.Input, cats []division.Category) singleResult {
	res := singleResult{Input: in, Label: c.ClassifyAll(in, cats)}
	for _, cat := range cats {
		in.Category = cat
		r := c.Classify(in)
		res.Divisions = append(res.Divisions, categoryResult{Category: cat, Outcome: r.Outcome.String(), Label: r.Label()})
	}
	res.Input.Category = ""
	return res
}

func classifyFile(c division.Classifier, path string, cats []division.Category) ([]classifyLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, err := roster.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return classifyRows(c, rows, cats)
}

// classifyRows classifies every data row. Rows with unusable input carry
// an Error instead of a label; they never abort the batch.
func classifyRows(c division.Classifier, rows [][]string, cats []division.Category) ([]classifyLine, error) {
	if len(rows) == 0 {
		return nil, eris.New("classify: empty file")
	}
	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"age", "sex"} {
		if _, ok := cols[req]; !ok {
			return nil, eris.Errorf("classify: missing column %q", req)
		}
	}
	get := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	lines := make([]classifyLine, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := classifyLine{Row: i + 2, Name: get(row, "name")}
		in, err := rowInput(get(row, "age"), get(row, "sex"), get(row, "height"), get(row, "weight"))
		if err != nil {
			line.Error = err.Error()
			lines = append(lines, line)
			continue
		}
		line.Age, line.Sex = in.Age, in.Sex
		line.Label = c.ClassifyAll(in, cats)
		lines = append(lines, line)
	}
	return lines, nil
}

func rowInput(age, sex, height, weight string) (division.Input, error) {
	var in division.Input
	a, err := strconv.Atoi(age)
	if err != nil || a < 0 {
		return in, eris.Errorf("invalid age %q", age)
	}
	in.Age = a
	s, ok := division.ParseSex(sex)
	if !ok {
		return in, eris.Errorf("unknown sex %q", sex)
	}
	in.Sex = s
	for _, m := range []struct {
		raw string
		dst **float64
	}{{height, &in.Height}, {weight, &in.Weight}} {
		if m.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(m.raw, 64)
		if err != nil || v <= 0 {
			return in, eris.Errorf("invalid measurement %q", m.raw)
		}
		*m.dst = &v
	}
	return in, nil
}

func writeClassifyCSV(out io.Writer, lines []classifyLine) error {
	w := csv.NewWriter(out)
	_ = w.Write([]string{"row", "name", "age", "sex", "label", "error"})
	for _, l := range lines {
		_ = w.Write([]string{strconv.Itoa(l.Row), l.Name, strconv.Itoa(l.Age), string(l.Sex), l.Label, l.Error})
	}
	w.Flush()
	return eris.Wrap(w.Error(), "write csv")
}

func init() {
	f := classifyCmd.Flags()
	f.Int("age", 0, "age in completed years")
	f.String("sex", "", "male or female")
	f.Float64("height", 0, "height in cm")
	f.Float64("weight", 0, "weight in kg")
	f.StringSlice("category", nil, "categories to classify (default all)")
	f.String("csv", "", "batch CSV file")
	f.String("format", "text", "output format: text, csv, json or yaml")
	rootCmd.AddCommand(classifyCmd)
}
