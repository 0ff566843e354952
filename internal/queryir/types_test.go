package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsegrid/internal/grid"
)

func TestFromFilters(t *testing.T) {
	assert.Equal(t, Select{Table: "t"}, FromFilters("t", nil))

	one := FromFilters("t", []grid.Filter{{Column: "name", Value: "b"}})
	assert.Equal(t, Contains{Column: "name", Needle: "b"}, one.Filter)

	two := FromFilters("t", []grid.Filter{{Column: "name", Value: "b"}, {Column: "status", Value: "open"}})
	and, ok := two.Filter.(And)
	require.True(t, ok)
	assert.Len(t, and.Predicates, 2)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Select{Table: "t"}))
	assert.NoError(t, Validate(Count{Table: "t", Filter: And{}}))
	assert.NoError(t, Validate(MaxPosition{Table: "t"}))
	assert.NoError(t, Validate(Select{Table: "t", Filter: And{Predicates: []Predicate{
		Contains{Column: "name", Needle: "x"},
		IDEquals{ID: "1"},
	}}}))

	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"nil", nil, "nil query"},
		{"no table", Select{}, "no table"},
		{"negative limit", Select{Table: "t", Limit: -1}, "negative limit"},
		{"empty column", Select{Table: "t", Filter: Contains{Needle: "x"}}, "empty column"},
		{"empty needle", Count{Table: "t", Filter: Contains{Column: "c"}}, "empty needle"},
		{"nested", Select{Table: "t", Filter: And{Predicates: []Predicate{IDEquals{}}}}, "empty id"},
		{"max no table", MaxPosition{}, "no table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	err := Validate(Select{Filter: And{Predicates: []Predicate{Contains{}, IDEquals{}}}})
	require.Error(t, err)
	for _, want := range []string{"no table", "empty column", "empty needle", "empty id"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidatePointerForms(t *testing.T) {
	assert.NoError(t, Validate(&Select{Table: "t", Filter: &IDEquals{ID: "1"}}))
	assert.NoError(t, Validate(&Count{Table: "t", Filter: &And{Predicates: []Predicate{&Contains{Column: "c", Needle: "x"}}}}))
	assert.NoError(t, Validate(&MaxPosition{Table: "t"}))

	err := Validate(&Select{Filter: &IDEquals{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table")
	assert.Contains(t, err.Error(), "empty id")

	err = Validate((*Select)(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil *queryir.Select")

	err = Validate(Select{Table: "t", Filter: (*Contains)(nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil *queryir.Contains")
}
