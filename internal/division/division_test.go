package division

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_JSON(t *testing.T) {
	tests := []struct {
		res  Result
		want string
	}{
		{classified("CADET GIRLS LIGHT"), `{"outcome":"classified","division":"CADET GIRLS LIGHT"}`},
		{Result{Outcome: Incomplete}, `{"outcome":"incomplete"}`},
		{Result{}, `{"outcome":"unclassified"}`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.res)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(b))

		var back Result
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, tt.res, back)
	}
}

func TestOutcome_UnmarshalTextRejectsUnknown(t *testing.T) {
	var o Outcome
	err := o.UnmarshalText([]byte("maybe"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `division: unknown outcome "maybe"`)
}

func TestResult_Label(t *testing.T) {
	assert.Equal(t, "Group 3", classified("Group 3").Label())
	assert.Equal(t, IncompleteLabel, Result{Outcome: Incomplete}.Label())
	assert.Empty(t, Result{}.Label())
	assert.True(t, classified("x").OK())
	assert.False(t, Result{Outcome: Incomplete}.OK())
}
