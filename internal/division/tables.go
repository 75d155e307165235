package division

import (
	"encoding/json"
	"math"
)

// Basis is the body measurement a Kyorugi table is banded on.
type Basis string

const (
	ByHeight Basis = "height"
	ByWeight Basis = "weight"
)

// Band is one row of a band table. For height tables Max is exclusive
// (height < Max); for weight tables Max is inclusive (weight <= Max).
// The last band of every table has Max = +Inf.
type Band struct {
	Max   float64 `json:"max" yaml:"max"`
	Label string  `json:"label" yaml:"label"`
}

// MarshalJSON renders the unbounded top band as "max": null.
func (b Band) MarshalJSON() ([]byte, error) {
	out := struct {
		Max   *float64 `json:"max"`
		Label string   `json:"label"`
	}{Label: b.Label}
	if !math.IsInf(b.Max, 1) {
		m := b.Max
		out.Max = &m
	}
	return json.Marshal(out)
}

// Table holds the bands for one age bracket and sex.
type Table struct {
	Bracket string `json:"bracket" yaml:"bracket"`
	Sex     Sex    `json:"sex" yaml:"sex"`
	MaxAge  int    `json:"max_age" yaml:"max_age"`
	Basis   Basis  `json:"basis" yaml:"basis"`
	Bands   []Band `json:"bands" yaml:"bands"`
}

// AgeBand maps an inclusive upper age to a Poomsae division.
type AgeBand struct {
	MaxAge int    `json:"max_age" yaml:"max_age"`
	Label  string `json:"label" yaml:"label"`
}

var inf = math.Inf(1)

// Age bracket upper bounds for Kyorugi. Seniors have no upper bound.
const (
	gradeSchoolMaxAge = 11
	cadetMaxAge       = 14
	juniorMaxAge      = 17
	seniorMaxAge      = math.MaxInt
)

// AdultGroup is the optional Poomsae catch-all above the last age band.
const AdultGroup = "Adult Group"

var poomsaeBands = []AgeBand{
	{6, "Toddlers"},
	{9, "Group 1"},
	{13, "Group 2"},
	{17, "Group 3"},
	{18, "Group 4"},
}

var gradeSchoolGirls = Table{
	Bracket: "Grade School", Sex: Female, MaxAge: gradeSchoolMaxAge, Basis: ByHeight,
	Bands: []Band{
		{113, "GS GIRLS U7 GROUP 00"},
		{120, "GS GIRLS U8 GROUP 0"},
		{127, "GS GIRLS U9 GROUP 1"},
		{134, "GS GIRLS U10 GROUP 2"},
		{141, "GS GIRLS U10 GROUP 3"},
		{148, "GS GIRLS U11 GROUP 4"},
		{inf, "GS GIRLS U11 GROUP 5"},
	},
}

var gradeSchoolBoys = Table{
	Bracket: "Grade School", Sex: Male, MaxAge: gradeSchoolMaxAge, Basis: ByHeight,
	Bands: []Band{
		{120, "GS BOYS U8 GROUP 0"},
		{128, "GS BOYS U9 GROUP 1"},
		{136, "GS BOYS U10 GROUP 2"},
		{144, "GS BOYS U10 GROUP 3"},
		{152, "GS BOYS U11 GROUP 4"},
		{inf, "GS BOYS U11 GROUP 5"},
	},
}

var cadetGirls = Table{
	Bracket: "Cadet", Sex: Female, MaxAge: cadetMaxAge, Basis: ByWeight,
	Bands: []Band{
		{33, "CADET GIRLS FLY"},
		{37, "CADET GIRLS BANTAM"},
		{41, "CADET GIRLS FEATHER"},
		{44, "CADET GIRLS LIGHT"},
		{47, "CADET GIRLS WELTER"},
		{inf, "CADET GIRLS MIDDLE"},
	},
}

var cadetBoys = Table{
	Bracket: "Cadet", Sex: Male, MaxAge: cadetMaxAge, Basis: ByWeight,
	Bands: []Band{
		{33, "CADET BOYS FIN"},
		{37, "CADET BOYS FLY"},
		{41, "CADET BOYS BANTAM"},
		{45, "CADET BOYS FEATHER"},
		{49, "CADET BOYS LIGHT"},
		{53, "CADET BOYS WELTER"},
		{inf, "CADET BOYS MIDDLE"},
	},
}

var juniorWomen = Table{
	Bracket: "Junior", Sex: Female, MaxAge: juniorMaxAge, Basis: ByWeight,
	Bands: []Band{
		{42, "JR WOMEN FIN"},
		{44, "JR WOMEN FLY"},
		{46, "JR WOMEN BANTAM"},
		{49, "JR WOMEN FEATHER"},
		{52, "JR WOMEN LIGHT"},
		{55, "JR WOMEN WELTER"},
		{inf, "JR WOMEN MIDDLE"},
	},
}

var juniorMen = Table{
	Bracket: "Junior", Sex: Male, MaxAge: juniorMaxAge, Basis: ByWeight,
	Bands: []Band{
		{45, "JR MEN FIN"},
		{48, "JR MEN FLY"},
		{51, "JR MEN BANTAM"},
		{55, "JR MEN FEATHER"},
		{59, "JR MEN LIGHT"},
		{63, "JR MEN WELTER"},
		{inf, "JR MEN MIDDLE"},
	},
}

var seniorWomen = Table{
	Bracket: "Senior", Sex: Female, MaxAge: seniorMaxAge, Basis: ByWeight,
	Bands: []Band{
		{46, "SR WOMEN FIN"},
		{49, "SR WOMEN FLY"},
		{53, "SR WOMEN BANTAM"},
		{57, "SR WOMEN FEATHER"},
		{62, "SR WOMEN LIGHT"},
		{67, "SR WOMEN WELTER"},
		{inf, "SR WOMEN MIDDLE"},
	},
}

var seniorMen = Table{
	Bracket: "Senior", Sex: Male, MaxAge: seniorMaxAge, Basis: ByWeight,
	Bands: []Band{
		{54, "SR MEN FIN"},
		{58, "SR MEN FLY"},
		{63, "SR MEN BANTAM"},
		{68, "SR MEN FEATHER"},
		{74, "SR MEN LIGHT"},
		{80, "SR MEN WELTER"},
		{inf, "SR MEN MIDDLE"},
	},
}

// kyorugiTables is ordered by ascending MaxAge; the first bracket whose
// MaxAge covers the competitor's age is used.
var kyorugiTables = map[Sex][]Table{
	Female: {gradeSchoolGirls, cadetGirls, juniorWomen, seniorWomen},
	Male:   {gradeSchoolBoys, cadetBoys, juniorMen, seniorMen},
}

// Tables returns copies of every Kyorugi table, girls/women first.
func Tables() []Table {
	var out []Table
	for _, sex := range []Sex{Female, Male} {
		for _, t := range kyorugiTables[sex] {
			c := t
			c.Bands = append([]Band(nil), t.Bands...)
			out = append(out, c)
		}
	}
	return out
}

// PoomsaeBands returns a copy of the Poomsae age bands.
func PoomsaeBands() []AgeBand {
	return append([]AgeBand(nil), poomsaeBands...)
}
