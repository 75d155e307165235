// Package division assigns competitors to Taekwondo competition divisions.
//
// Classification is a pure lookup over fixed band tables: Poomsae divisions
// depend on age alone, Kyorugi divisions depend on age, sex and either height
// (grade school) or weight (cadet, junior, senior). Nothing in this package
// performs I/O or keeps state between calls.
package division

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Sex is the competitor's sex as used for division tables.
type Sex string

const (
	Male   Sex = "Male"
	Female Sex = "Female"
)

// Category is a competition category a player can be registered in.
type Category string

const (
	Kyorugi     Category = "Kyorugi"
	Poomsae     Category = "Poomsae"
	PoomsaeTeam Category = "Poomsae Team"
)

// Categories lists every supported category in display order.
var Categories = []Category{Kyorugi, Poomsae, PoomsaeTeam}

// IncompleteLabel is the legacy label stored when Kyorugi input lacks height or weight.
const IncompleteLabel = "Kyorugi: Incomplete Data"

// Outcome tags a classification result.
type Outcome int

const (
	// Unclassified means no division matched the input.
	Unclassified Outcome = iota
	// Classified means Division holds a division label.
	Classified
	// Incomplete means Kyorugi input was missing height or weight.
	Incomplete
)

func (o Outcome) String() string {
	switch o {
	case Classified:
		return "classified"
	case Incomplete:
		return "incomplete"
	default:
		return "unclassified"
	}
}

// MarshalText renders the outcome by name in JSON and YAML output.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText parses an outcome name written by MarshalText.
func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "classified":
		*o = Classified
	case "incomplete":
		*o = Incomplete
	case "unclassified", "":
		*o = Unclassified
	default:
		return eris.Errorf("division: unknown outcome %q", b)
	}
	return nil
}

// Input is everything the engine needs to place one competitor.
// Height (cm) and Weight (kg) are only consulted for Kyorugi; nil means absent.
type Input struct {
	Age      int      `json:"age"`
	Sex      Sex      `json:"sex"`
	Category Category `json:"category"`
	Height   *float64 `json:"height,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
}

// Result is the outcome of classifying one Input.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	Division string  `json:"division,omitempty"`
}

// OK reports whether a division was assigned.
func (r Result) OK() bool { return r.Outcome == Classified }

// Label returns the string form stored in a registration's group field:
// the division when classified, IncompleteLabel when incomplete, "" otherwise.
func (r Result) Label() string {
	switch r.Outcome {
	case Classified:
		return r.Division
	case Incomplete:
		return IncompleteLabel
	default:
		return ""
	}
}

func classified(label string) Result { return Result{Outcome: Classified, Division: label} }

// ParseSex normalizes free-text sex values ("male", " F ", "Female").
// ok is false for anything unrecognized.
func ParseSex(s string) (Sex, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "boy", "man":
		return Male, true
	case "female", "f", "girl", "woman":
		return Female, true
	}
	return "", false
}

// ParseCategory normalizes free-text category names. Underscores, hyphens
// and repeated whitespace are tolerated ("poomsae_team", "Poomsae-Team").
func ParseCategory(s string) (Category, bool) {
	norm := strings.ToLower(strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	}), " "))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == norm {
			return c, true
		}
	}
	return "", false
}

// Float returns a pointer to v, for building Inputs inline.
func Float(v float64) *float64 { return &v }
