package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"duck-grouper/internal/domain"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// errorKind names the domain error class of err for JSON error output.
func errorKind(err error) string {
	var (
		notFound      *domain.NotFoundError
		validation    *domain.ValidationError
		invalidMode   *domain.InvalidGroupModeError
		badFormat     *domain.BadGroupFormatError
		fieldNotFound *domain.GroupFieldNotFoundError
	)
	switch {
	case errors.As(err, &invalidMode):
		return "invalid_group_mode"
	case errors.As(err, &badFormat):
		return "bad_group_format"
	case errors.As(err, &fieldNotFound):
		return "group_field_not_found"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &validation):
		return "validation"
	default:
		return ""
	}
}

var groupHeaders = []string{"GROUP_ID", "COUNT", "FIRST_VALUE", "LAST_VALUE", "LOWER", "UPPER"}

func groupRows(groups []domain.GroupMetadata) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			cast.ToString(g.GroupID),
			cast.ToString(g.Count),
			formatValues(g.FirstValue),
			formatValues(g.LastValue),
			lowerBound(g),
			upperBound(g),
		})
	}
	return rows
}

func lowerBound(g domain.GroupMetadata) string {
	if g.GreaterThan != nil {
		return "> " + formatValues(g.GreaterThan)
	}
	if g.GreaterThanEq != nil {
		return ">= " + formatValues(g.GreaterThanEq)
	}
	return ""
}

func upperBound(g domain.GroupMetadata) string {
	if g.LessThan != nil {
		return "< " + formatValues(g.LessThan)
	}
	if g.LessThanEq != nil {
		return "<= " + formatValues(g.LessThanEq)
	}
	return ""
}

// formatValues renders a column-keyed snapshot. A single column shows its bare
// value; several columns render as sorted key=value pairs.
func formatValues(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := sortedKeys(m)
	if len(keys) == 1 {
		return formatCell(m[keys[0]])
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatCell(m[k])
	}
	return strings.Join(parts, " ")
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

// recordTable lays out records with the group id first and data columns in
// name order.
func recordTable(recs []domain.Record) ([]string, [][]string) {
	seen := map[string]bool{}
	var columns []string
	for _, r := range recs {
		for k := range r.Data {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	headers := append([]string{"GROUP_ID"}, columns...)
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := make([]string, 0, len(headers))
		row = append(row, formatCell(r.Metadata[domain.GroupIDKey]))
		for _, c := range columns {
			row = append(row, formatCell(r.Data[c]))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
