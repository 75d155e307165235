package division

import (
	"math"
	"strings"
)

// Options adjusts classification behavior that differs between events.
type Options struct {
	// AdultPoomsaeGroup places Poomsae competitors older than the last age
	// band in AdultGroup instead of leaving them unclassified.
	AdultPoomsaeGroup bool `yaml:"adult_poomsae_group" mapstructure:"adult_poomsae_group"`
}

// Classifier evaluates the division tables. The zero value is ready to use.
type Classifier struct {
	opts Options
}

// NewClassifier returns a Classifier with the given options.
func NewClassifier(opts Options) Classifier {
	return Classifier{opts: opts}
}

var defaultClassifier Classifier

// Classify places in using the default options.
func Classify(in Input) Result {
	return defaultClassifier.Classify(in)
}

// ClassifyAll classifies in once per category using the default options.
func ClassifyAll(in Input, categories []Category) string {
	return defaultClassifier.ClassifyAll(in, categories)
}

// Classify returns the division for in. It never panics: unknown
// categories, unknown sexes and non-finite measurements yield Unclassified.
func (c Classifier) Classify(in Input) Result {
	switch in.Category {
	case Poomsae, PoomsaeTeam:
		return c.poomsae(in.Age)
	case Kyorugi:
		return kyorugi(in)
	}
	return Result{}
}

func (c Classifier) poomsae(age int) Result {
	for _, b := range poomsaeBands {
		if age <= b.MaxAge {
			return classified(b.Label)
		}
	}
	if c.opts.AdultPoomsaeGroup {
		return classified(AdultGroup)
	}
	return Result{}
}

func kyorugi(in Input) Result {
	if in.Height == nil || in.Weight == nil {
		return Result{Outcome: Incomplete}
	}
	tables, ok := kyorugiTables[in.Sex]
	if !ok {
		return Result{}
	}
	for _, t := range tables {
		if in.Age > t.MaxAge {
			continue
		}
		if label, ok := t.lookup(*in.Height, *in.Weight); ok {
			return classified(label)
		}
		return Result{}
	}
	return Result{}
}

// lookup walks the bands in ascending order; the first satisfied bound wins.
func (t Table) lookup(height, weight float64) (string, bool) {
	v := weight
	if t.Basis == ByHeight {
		v = height
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", false
	}
	for _, b := range t.Bands {
		if t.Basis == ByHeight && v < b.Max {
			return b.Label, true
		}
		if t.Basis == ByWeight && v <= b.Max {
			return b.Label, true
		}
	}
	return "", false
}

// ClassifyAll computes one label per category, drops empty labels and
// duplicates, and joins the rest with ", ". Order follows categories.
// Incomplete Kyorugi input contributes IncompleteLabel.
func (c Classifier) ClassifyAll(in Input, categories []Category) string {
	seen := make(map[string]struct{}, len(categories))
	labels := make([]string, 0, len(categories))
	for _, cat := range categories {
		in.Category = cat
		label := c.Classify(in).Label()
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return strings.Join(labels, ", ")
}
