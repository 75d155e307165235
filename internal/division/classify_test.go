package division

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kyorugiInput(age int, sex Sex, height, weight float64) Input {
	return Input{Age: age, Sex: sex, Category: Kyorugi, Height: Float(height), Weight: Float(weight)}
}

func TestClassify_PoomsaeBoundaries(t *testing.T) {
	tests := []struct {
		age  int
		want string
	}{
		{-3, "Toddlers"},
		{0, "Toddlers"},
		{6, "Toddlers"},
		{7, "Group 1"},
		{9, "Group 1"},
		{10, "Group 2"},
		{13, "Group 2"},
		{14, "Group 3"},
		{17, "Group 3"},
		{18, "Group 4"},
	}

	for _, tt := range tests {
		for _, cat := range []Category{Poomsae, PoomsaeTeam} {
			for _, sex := range []Sex{Male, Female, ""} {
				got := Classify(Input{Age: tt.age, Sex: sex, Category: cat})
				assert.Equal(t, Classified, got.Outcome, "age %d %s", tt.age, cat)
				assert.Equal(t, tt.want, got.Division, "age %d %s %s", tt.age, cat, sex)
			}
		}
	}
}

func TestClassify_PoomsaeAboveLastBand(t *testing.T) {
	got := Classify(Input{Age: 19, Category: Poomsae})
	assert.Equal(t, Unclassified, got.Outcome)
	assert.Equal(t, "", got.Label())

	c := NewClassifier(Options{AdultPoomsaeGroup: true})
	got = c.Classify(Input{Age: 40, Category: PoomsaeTeam})
	assert.Equal(t, Classified, got.Outcome)
	assert.Equal(t, AdultGroup, got.Division)

	// The option does not move in-band ages.
	assert.Equal(t, "Group 4", c.Classify(Input{Age: 18, Category: Poomsae}).Division)
}

func TestClassify_KyorugiIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		height *float64
		weight *float64
	}{
		{"no height", nil, Float(40)},
		{"no weight", Float(150), nil},
		{"neither", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, age := range []int{5, 12, 16, 30} {
				for _, sex := range []Sex{Male, Female} {
					got := Classify(Input{Age: age, Sex: sex, Category: Kyorugi, Height: tt.height, Weight: tt.weight})
					assert.Equal(t, Incomplete, got.Outcome)
					assert.Equal(t, IncompleteLabel, got.Label())
					assert.Equal(t, "Kyorugi: Incomplete Data", got.Label())
				}
			}
		})
	}
}

func TestClassify_GradeSchoolGirls(t *testing.T) {
	tests := []struct {
		age    int
		height float64
		want   string
	}{
		{7, 100, "GS GIRLS U7 GROUP 00"},
		{7, 112, "GS GIRLS U7 GROUP 00"},
		{7, 112.9, "GS GIRLS U7 GROUP 00"},
		{7, 113, "GS GIRLS U8 GROUP 0"},
		{8, 119, "GS GIRLS U8 GROUP 0"},
		{8, 120, "GS GIRLS U9 GROUP 1"},
		{9, 127, "GS GIRLS U10 GROUP 2"},
		{10, 134, "GS GIRLS U10 GROUP 3"},
		{10, 141, "GS GIRLS U11 GROUP 4"},
		{11, 147.5, "GS GIRLS U11 GROUP 4"},
		{11, 148, "GS GIRLS U11 GROUP 5"},
		{11, 190, "GS GIRLS U11 GROUP 5"},
	}

	for _, tt := range tests {
		got := Classify(kyorugiInput(tt.age, Female, tt.height, 30))
		assert.Equal(t, tt.want, got.Division, "age %d height %.1f", tt.age, tt.height)
	}
}

func TestClassify_GradeSchoolBoys(t *testing.T) {
	tests := []struct {
		height float64
		want   string
	}{
		{110, "GS BOYS U8 GROUP 0"},
		{119.9, "GS BOYS U8 GROUP 0"},
		{120, "GS BOYS U9 GROUP 1"},
		{125, "GS BOYS U9 GROUP 1"},
		{128, "GS BOYS U10 GROUP 2"},
		{136, "GS BOYS U10 GROUP 3"},
		{144, "GS BOYS U11 GROUP 4"},
		{151, "GS BOYS U11 GROUP 4"},
		{152, "GS BOYS U11 GROUP 5"},
	}

	for _, tt := range tests {
		got := Classify(kyorugiInput(10, Male, tt.height, 30))
		assert.Equal(t, tt.want, got.Division, "height %.1f", tt.height)
	}
}

func TestClassify_GradeSchoolIgnoresWeight(t *testing.T) {
	a := Classify(kyorugiInput(9, Male, 125, 20))
	b := Classify(kyorugiInput(9, Male, 125, 80))
	assert.Equal(t, a, b)
}

func TestClassify_WeightBrackets(t *testing.T) {
	tests := []struct {
		name   string
		age    int
		sex    Sex
		weight float64
		want   string
	}{
		{"cadet boys fin", 12, Male, 33, "CADET BOYS FIN"},
		{"cadet boys fly", 12, Male, 33.1, "CADET BOYS FLY"},
		{"cadet boys welter", 14, Male, 53, "CADET BOYS WELTER"},
		{"cadet boys middle", 14, Male, 53.1, "CADET BOYS MIDDLE"},
		{"cadet girls lightest is fly", 13, Female, 20, "CADET GIRLS FLY"},
		{"cadet girls bantam", 13, Female, 35, "CADET GIRLS BANTAM"},
		{"cadet girls middle", 14, Female, 90, "CADET GIRLS MIDDLE"},
		{"junior men fin", 15, Male, 45, "JR MEN FIN"},
		{"junior men light", 16, Male, 58, "JR MEN LIGHT"},
		{"junior men middle", 17, Male, 63.5, "JR MEN MIDDLE"},
		{"junior women fin", 15, Female, 42, "JR WOMEN FIN"},
		{"junior women feather", 17, Female, 48, "JR WOMEN FEATHER"},
		{"junior women middle", 17, Female, 55.01, "JR WOMEN MIDDLE"},
		{"senior men fin", 25, Male, 54.0, "SR MEN FIN"},
		{"senior men fly", 25, Male, 54.1, "SR MEN FLY"},
		{"senior men welter", 18, Male, 80, "SR MEN WELTER"},
		{"senior men middle", 25, Male, 200, "SR MEN MIDDLE"},
		{"senior women fin", 30, Female, 46, "SR WOMEN FIN"},
		{"senior women light", 30, Female, 60, "SR WOMEN LIGHT"},
		{"senior women middle", 60, Female, 67.5, "SR WOMEN MIDDLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(kyorugiInput(tt.age, tt.sex, 170, tt.weight))
			require.Equal(t, Classified, got.Outcome)
			assert.Equal(t, tt.want, got.Division)
		})
	}
}

func TestClassify_CadetGirlsHaveNoFin(t *testing.T) {
	for _, tbl := range Tables() {
		if tbl.Bracket == "Cadet" && tbl.Sex == Female {
			for _, b := range tbl.Bands {
				assert.False(t, strings.HasSuffix(b.Label, "FIN"), b.Label)
			}
		}
	}
}

func TestClassify_Unclassified(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		in   Input
	}{
		{"nan weight senior", kyorugiInput(25, Male, 170, nan)},
		{"nan height grade school", kyorugiInput(8, Female, nan, 25)},
		{"inf weight", kyorugiInput(20, Female, 160, math.Inf(1))},
		{"unknown sex", kyorugiInput(20, "Other", 170, 60)},
		{"unknown category", Input{Age: 10, Sex: Male, Category: "Breaking"}},
		{"empty input", Input{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			assert.Equal(t, Unclassified, got.Outcome)
			assert.Equal(t, "", got.Label())
			assert.False(t, got.OK())
		})
	}
}

func TestClassify_TotalOverExtremeInputs(t *testing.T) {
	values := []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1, 0, 1e12, -1e12}
	ages := []int{math.MinInt, -1, 0, 11, 12, 14, 15, 17, 18, 99, math.MaxInt}
	for _, age := range ages {
		for _, cat := range append(Categories, "") {
			for _, h := range values {
				for _, w := range values {
					assert.NotPanics(t, func() {
						_ = Classify(Input{Age: age, Sex: Male, Category: cat, Height: Float(h), Weight: Float(w)}).Label()
					})
				}
			}
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	in := kyorugiInput(16, Female, 165, 50)
	want := Classify(in)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Classify(in))
		}()
	}
	wg.Wait()
}

func TestClassifyAll(t *testing.T) {
	in := Input{Age: 10, Sex: Male, Height: Float(125), Weight: Float(30)}

	got := ClassifyAll(in, []Category{Kyorugi, Poomsae})
	assert.Equal(t, "GS BOYS U9 GROUP 1, Group 2", got)

	parts := strings.Split(got, ", ")
	require.Len(t, parts, 2)
	assert.NotEqual(t, parts[0], parts[1])
}

func TestClassifyAll_DedupesAndDropsEmpty(t *testing.T) {
	in := Input{Age: 8, Sex: Female}

	// Poomsae and Poomsae Team share a label; Kyorugi is incomplete.
	got := ClassifyAll(in, []Category{Poomsae, PoomsaeTeam, Kyorugi})
	assert.Equal(t, "Group 1, Kyorugi: Incomplete Data", got)

	in.Age = 30
	assert.Equal(t, "", ClassifyAll(in, []Category{Poomsae, PoomsaeTeam}))
	assert.Equal(t, "", ClassifyAll(in, nil))
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Kyorugi", Kyorugi, true},
		{" kyorugi ", Kyorugi, true},
		{"POOMSAE", Poomsae, true},
		{"Poomsae Team", PoomsaeTeam, true},
		{"poomsae_team", PoomsaeTeam, true},
		{"Poomsae-Team", PoomsaeTeam, true},
		{"breaking", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseSex(t *testing.T) {
	for _, s := range []string{"male", "M", " Male "} {
		got, ok := ParseSex(s)
		assert.True(t, ok)
		assert.Equal(t, Male, got)
	}
	for _, s := range []string{"female", "f", "FEMALE"} {
		got, ok := ParseSex(s)
		assert.True(t, ok)
		assert.Equal(t, Female, got)
	}
	_, ok := ParseSex("x")
	assert.False(t, ok)
}

func TestTables_ReturnsCopies(t *testing.T) {
	tables := Tables()
	require.Len(t, tables, 8)
	tables[0].Bands[0].Label = "mutated"
	assert.Equal(t, "GS GIRLS U7 GROUP 00", Tables()[0].Bands[0].Label)

	for _, tbl := range tables {
		last := tbl.Bands[len(tbl.Bands)-1]
		assert.True(t, math.IsInf(last.Max, 1), "%s %s top band must be unbounded", tbl.Bracket, tbl.Sex)
		for i := 1; i < len(tbl.Bands); i++ {
			assert.Less(t, tbl.Bands[i-1].Max, tbl.Bands[i].Max)
		}
	}
}

func TestBand_MarshalJSON(t *testing.T) {
	b, err := Band{Max: 54, Label: "SR MEN FIN"}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"max":54,"label":"SR MEN FIN"}`, string(b))

	b, err = Band{Max: math.Inf(1), Label: "SR MEN MIDDLE"}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"max":null,"label":"SR MEN MIDDLE"}`, string(b))
}
