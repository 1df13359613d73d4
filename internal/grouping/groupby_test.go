package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-grouper/internal/domain"
)

func TestGroupBy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		groupBy GroupBy
		wantErr any
		msg     string
	}{
		{name: "distinct_ok", groupBy: Distinct("city", "state")},
		{name: "magnitude_ok", groupBy: Magnitude("age")},
		{name: "percentile_ok", groupBy: Percentile(4, "age")},
		{
			name:    "invalid_mode",
			groupBy: NewGroupBy([]string{"a"}, domain.GroupMode("median"), 0),
			wantErr: &domain.InvalidGroupModeError{},
			msg:     `mode "median" is invalid. valid modes are: 'distinct', 'magnitude', 'percentile'`,
		},
		{
			name:    "no_columns",
			groupBy: Distinct(),
			wantErr: &domain.BadGroupFormatError{},
			msg:     "at least one group column is required",
		},
		{
			name:    "percentile_zero_groups",
			groupBy: Percentile(0, "age"),
			wantErr: &domain.BadGroupFormatError{},
			msg:     "percentile mode requires a positive integer num_groups",
		},
		{
			name:    "percentile_negative_groups",
			groupBy: Percentile(-3, "age"),
			wantErr: &domain.BadGroupFormatError{},
		},
		{name: "percentile_max_groups", groupBy: Percentile(MaxNumGroups, "age")},
		{
			name:    "percentile_too_many_groups",
			groupBy: Percentile(3000000, "age"),
			wantErr: &domain.BadGroupFormatError{},
			msg:     "num_groups must be at most 10000, got 3000000",
		},
		{
			name:    "magnitude_two_columns",
			groupBy: NewGroupBy([]string{"a", "b"}, domain.GroupModeMagnitude, 0),
			wantErr: &domain.BadGroupFormatError{},
			msg:     "magnitude mode only works on single columns",
		},
		{
			name:    "blank_column",
			groupBy: Distinct("a", "  "),
			wantErr: &domain.BadGroupFormatError{},
		},
		{
			// Mode is checked before column shape.
			name:    "invalid_mode_wins",
			groupBy: NewGroupBy(nil, domain.GroupMode("bogus"), 0),
			wantErr: &domain.InvalidGroupModeError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.groupBy.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.IsType(t, tt.wantErr, err)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}
}

func TestGroupBy_ResolveColumns(t *testing.T) {
	table := NewStaticTable("people", "name", "age", "city", "state")

	t.Run("preserves_input_order", func(t *testing.T) {
		cols, err := Distinct("state", "city").ResolveColumns(table)
		require.NoError(t, err)
		assert.Equal(t, []Column{{Name: "state"}, {Name: "city"}}, cols)
	})

	t.Run("unknown_column", func(t *testing.T) {
		_, err := Distinct("city", "zip").ResolveColumns(table)
		var notFound *domain.GroupFieldNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Contains(t, notFound.Message, `"zip"`)
		assert.Contains(t, notFound.Message, "people")
	})

	t.Run("validation_runs_first", func(t *testing.T) {
		_, err := Percentile(0, "zip").ResolveColumns(table)
		var bad *domain.BadGroupFormatError
		require.ErrorAs(t, err, &bad)
	})
}

func TestGroupBy_ColumnsIsCopy(t *testing.T) {
	cols := []string{"a", "b"}
	g := Distinct(cols...)
	cols[0] = "z"
	got := g.Columns()
	got[1] = "y"

	assert.Equal(t, []string{"a", "b"}, g.Columns())
}

func TestGroupBy_Ranged(t *testing.T) {
	assert.False(t, Distinct("a").Ranged())
	assert.True(t, Magnitude("a").Ranged())
	assert.True(t, Percentile(2, "a").Ranged())
}
