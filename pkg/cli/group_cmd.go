package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"duck-grouper/internal/domain"
	"duck-grouper/internal/service/records"
)

// requestFlags are the flags shared by group and plan.
type requestFlags struct {
	table     string
	schema    string
	path      string
	columns   []string
	mode      string
	numGroups int
	filter    string
}

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.table, "table", "", "Table or view to group")
	fs.StringVar(&f.schema, "schema", "", "Schema of --table (default: main)")
	fs.StringVar(&f.path, "path", "", "Parquet, CSV or JSON file to group instead of a table")
	fs.StringSliceVarP(&f.columns, "columns", "c", nil, "Grouping columns (comma-separated)")
	fs.StringVarP(&f.mode, "mode", "m", string(domain.GroupModeDistinct), "Grouping mode (distinct, magnitude, percentile)")
	fs.IntVarP(&f.numGroups, "num-groups", "n", 0, "Number of groups for percentile mode")
	fs.StringVar(&f.filter, "filter", "", "Expression selecting groups, e.g. 'count > 10'")
}

// request converts the flags into a service request. The mode is parsed here
// so typos fail before DuckDB is opened.
func (f *requestFlags) request() (records.Request, error) {
	mode, err := domain.ParseGroupMode(f.mode)
	if err != nil {
		return records.Request{}, err
	}
	req := records.Request{
		Table:     f.table,
		Schema:    f.schema,
		Path:      f.path,
		Columns:   f.columns,
		Mode:      mode,
		NumGroups: f.numGroups,
		Filter:    f.filter,
	}
	return req, req.Validate()
}

func newGroupCmd(opts *options) *cobra.Command {
	var (
		flags       requestFlags
		showRecords bool
	)

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Group the rows of a table or file",
		Example: `  duckgroup group --table people --columns city,state
  duckgroup group --path ages.parquet --columns age --mode magnitude
  duckgroup group --table people --columns age --mode percentile -n 4 --filter 'count > 1'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}

			svc, closeFn, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.Group(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return printJSON(out, res)
			}
			return printGroupResult(out, res, showRecords)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&showRecords, "records", false, "Also print the grouped records (table output)")
	return cmd
}

func printGroupResult(w io.Writer, res *records.Result, showRecords bool) error {
	if err := printTable(w, groupHeaders, groupRows(res.Groups)); err != nil {
		return err
	}
	if !showRecords {
		return nil
	}
	_, _ = fmt.Fprintln(w)
	headers, rows := recordTable(res.Records)
	return printTable(w, headers, rows)
}
