package grouping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-grouper/internal/domain"
	"duck-grouper/internal/duckdbsql"
)

const wholePartition = "RANGE BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING"

func TestBuildPlan_Distinct(t *testing.T) {
	table := NewStaticTable("people", "name", "city", "state")

	plan, err := BuildPlan(table, Distinct("city", "state"))
	require.NoError(t, err)

	snapshot := `json_object('city', "city", 'state', "state")`
	window := `(PARTITION BY "city", "state" ORDER BY "city", "state" ` + wholePartition + `)`
	want := `SELECT "name", "city", "state", CAST(json_object(` +
		`'group_id', dense_rank() OVER (ORDER BY "city", "state"), ` +
		`'count', count(1) OVER (PARTITION BY "city", "state"), ` +
		`'first_value', CAST(first_value(` + snapshot + `) OVER ` + window + ` AS JSON), ` +
		`'last_value', CAST(last_value(` + snapshot + `) OVER ` + window + ` AS JSON), ` +
		`'less_than_eq_value', NULL, 'greater_than_eq_value', NULL, ` +
		`'less_than_value', NULL, 'greater_than_value', NULL) AS VARCHAR) AS "__duckgroup_metadata" ` +
		`FROM "people"`

	assert.Equal(t, want, plan.SQL())
	assert.Equal(t, domain.GroupModeDistinct, plan.Mode)
	assert.Equal(t, "people", plan.Table)
	assert.Equal(t, []string{"name", "city", "state"}, plan.Columns)
}

func TestBuildPlan_Magnitude(t *testing.T) {
	table := NewStaticTable("people", "name", "age")

	plan, err := BuildPlan(table, Magnitude("age"))
	require.NoError(t, err)
	sql := plan.SQL()

	wantStages := []string{
		`WITH "__duckgroup_diff_cte" AS (SELECT *, max("age") OVER () - min("age") OVER () AS "__duckgroup_extrema_difference" FROM "people")`,
		`"__duckgroup_power_cte" AS (SELECT *, CASE WHEN "__duckgroup_extrema_difference" > 0 THEN CAST(floor(log10("__duckgroup_extrema_difference")) AS INTEGER) ELSE 0 END AS "__duckgroup_power" FROM "__duckgroup_diff_cte")`,
		`"__duckgroup_raw_id_cte" AS (SELECT *, CAST(floor("age" / pow(10.0, "__duckgroup_power")) AS BIGINT) AS "__duckgroup_raw_id" FROM "__duckgroup_power_cte")`,
		`"__duckgroup_bucket_cte" AS (SELECT *, CASE WHEN CASE WHEN "__duckgroup_power" >= 0 THEN trunc(("__duckgroup_raw_id" + 1) * pow(10.0, "__duckgroup_power"))`,
		`ELSE "__duckgroup_raw_id" END AS "__duckgroup_bucket" FROM "__duckgroup_raw_id_cte")`,
	}
	for _, stage := range wantStages {
		assert.Contains(t, sql, stage)
	}

	assert.True(t, strings.HasPrefix(sql, wantStages[0]))
	assert.NotContains(t, sql, `round("age"`)
	assert.Contains(t, sql, `SELECT "name", "age", CAST(json_object('group_id', dense_rank() OVER (ORDER BY "__duckgroup_bucket")`)
	assert.Contains(t, sql, `OVER (PARTITION BY "__duckgroup_bucket" ORDER BY "age" `+wholePartition+`)`)
	assert.Contains(t, sql, `'greater_than_eq_value', json_object('age', CASE WHEN "__duckgroup_power" >= 0 THEN trunc(("__duckgroup_bucket" + 0) * pow(10.0, "__duckgroup_power")) ELSE round(("__duckgroup_bucket" + 0) * pow(10.0, "__duckgroup_power"), -"__duckgroup_power") END)`)
	assert.Contains(t, sql, `'less_than_value', json_object('age', CASE WHEN "__duckgroup_power" >= 0 THEN trunc(("__duckgroup_bucket" + 1) * pow(10.0, "__duckgroup_power"))`)
	assert.Contains(t, sql, `'less_than_eq_value', NULL`)
	assert.Contains(t, sql, `'greater_than_value', NULL`)
	assert.True(t, strings.HasSuffix(sql, `AS VARCHAR) AS "__duckgroup_metadata" FROM "__duckgroup_bucket_cte"`))
}

func TestBuildPlan_Percentile(t *testing.T) {
	table := NewStaticTable("scores", "score")

	plan, err := BuildPlan(table, Percentile(4, "score"))
	require.NoError(t, err)
	sql := plan.SQL()

	assert.Contains(t, sql, `WITH "__duckgroup_cume_dist_cte" AS (SELECT *, cume_dist() OVER (ORDER BY "score") AS "__duckgroup_cume_dist" FROM "scores")`)
	assert.Contains(t, sql, `"__duckgroup_ranges_cte" AS (SELECT * EXCLUDE ("__duckgroup_cume_dist"), CASE `+
		`WHEN "__duckgroup_cume_dist" > 0.0 AND "__duckgroup_cume_dist" <= 0.25 THEN 1 `+
		`WHEN "__duckgroup_cume_dist" > 0.25 AND "__duckgroup_cume_dist" <= 0.5 THEN 2 `+
		`WHEN "__duckgroup_cume_dist" > 0.5 AND "__duckgroup_cume_dist" <= 0.75 THEN 3 `+
		`WHEN "__duckgroup_cume_dist" > 0.75 AND "__duckgroup_cume_dist" <= 1.0 THEN 4 `+
		`END AS "__duckgroup_range_id" FROM "__duckgroup_cume_dist_cte")`)
	assert.Contains(t, sql, `SELECT "score", CAST(json_object('group_id', "__duckgroup_range_id", 'count', count(1) OVER (PARTITION BY "__duckgroup_range_id")`)
	assert.Contains(t, sql, `OVER (PARTITION BY "__duckgroup_range_id" ORDER BY "score" `+wholePartition+`)`)
	assert.True(t, strings.HasSuffix(sql, `FROM "__duckgroup_ranges_cte"`))
}

func TestBuildPlan_FileSource(t *testing.T) {
	table := &StaticTable{
		Label:       "data/people.parquet",
		Source:      &duckdbsql.FuncTable{Func: duckdbsql.Func("read_parquet", duckdbsql.String("data/people.parquet"))},
		ColumnNames: []string{"city"},
	}

	plan, err := BuildPlan(table, Distinct("city"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(plan.SQL(), `FROM read_parquet('data/people.parquet')`))
}

func TestBuildPlan_Errors(t *testing.T) {
	table := NewStaticTable("people", "name", "age")

	tests := []struct {
		name    string
		groupBy GroupBy
		wantErr error
	}{
		{"invalid_mode", NewGroupBy([]string{"age"}, "median", 0), &domain.InvalidGroupModeError{}},
		{"missing_column", Distinct("zip"), &domain.GroupFieldNotFoundError{}},
		{"magnitude_multi", NewGroupBy([]string{"name", "age"}, domain.GroupModeMagnitude, 0), &domain.BadGroupFormatError{}},
		{"percentile_no_groups", Percentile(0, "age"), &domain.BadGroupFormatError{}},
		{"percentile_too_many_groups", Percentile(MaxNumGroups+1, "age"), &domain.BadGroupFormatError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildPlan(table, tt.groupBy)
			require.Error(t, err)
			assert.Nil(t, plan)
			assert.IsType(t, tt.wantErr, err)
		})
	}
}

func TestPercentileBands_SingleGroup(t *testing.T) {
	got := duckdbsql.FormatExpr(percentileBands(1))
	assert.Equal(t, `CASE WHEN "__duckgroup_cume_dist" > 0.0 AND "__duckgroup_cume_dist" <= 1.0 THEN 1 END`, got)
}

func TestPercentileBands_ThirdsAreExact(t *testing.T) {
	got := duckdbsql.FormatExpr(percentileBands(3))
	assert.Contains(t, got, `<= 0.3333333333333333 THEN 1`)
	assert.Contains(t, got, `> 0.6666666666666666 AND`)
}

func TestPipeline_NoStages(t *testing.T) {
	stmt := newPipeline(&duckdbsql.TableName{Name: "t"}).finish([]duckdbsql.SelectItem{duckdbsql.Star()})
	assert.Nil(t, stmt.With)
	assert.Equal(t, `SELECT * FROM "t"`, duckdbsql.Format(stmt))
}
