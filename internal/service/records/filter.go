package records

import (
	"encoding/json"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"duck-grouper/internal/domain"
)

// groupFilter keeps groups for which a boolean expression holds. The
// expression sees group_id, count, first_value, last_value and the four
// bound objects, e.g. `count > 1 && first_value.city == "Austin"`.
type groupFilter struct {
	source  string
	program *vm.Program
}

func compileFilter(source string) (*groupFilter, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, domain.ErrValidation("invalid filter %q: %v", source, err)
	}
	return &groupFilter{source: source, program: program}, nil
}

func (f *groupFilter) match(g domain.GroupMetadata) (bool, error) {
	out, err := expr.Run(f.program, filterEnv(g))
	if err != nil {
		return false, domain.ErrValidation("evaluate filter %q on group %d: %v", f.source, g.GroupID, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// apply drops groups that do not match, and the records that belong to them.
func (f *groupFilter) apply(records []domain.Record, groups []domain.GroupMetadata) ([]domain.Record, []domain.GroupMetadata, error) {
	if groups == nil {
		return records, nil, nil
	}

	kept := make(map[int64]bool, len(groups))
	outGroups := make([]domain.GroupMetadata, 0, len(groups))
	for _, g := range groups {
		ok, err := f.match(g)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			kept[g.GroupID] = true
			outGroups = append(outGroups, g)
		}
	}

	outRecords := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		id, ok := rec.Metadata[domain.GroupIDKey].(int64)
		if ok && kept[id] {
			outRecords = append(outRecords, rec)
		}
	}
	return outRecords, outGroups, nil
}

func filterEnv(g domain.GroupMetadata) map[string]any {
	return map[string]any{
		"group_id":              g.GroupID,
		"count":                 g.Count,
		"first_value":           plainValues(g.FirstValue),
		"last_value":            plainValues(g.LastValue),
		"less_than_eq_value":    plainValues(g.LessThanEq),
		"greater_than_eq_value": plainValues(g.GreaterThanEq),
		"less_than_value":       plainValues(g.LessThan),
		"greater_than_value":    plainValues(g.GreaterThan),
	}
}

// plainValues converts json.Number leaves to int64 or float64 so expressions
// can compare them with numeric literals.
func plainValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		return plainValues(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}
