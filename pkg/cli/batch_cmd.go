package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"duck-grouper/internal/domain"
	"duck-grouper/internal/service/records"
)

// batchFile is the YAML document read by the batch command:
//
//	requests:
//	  - table: people
//	    columns: [city]
//	  - path: ages.parquet
//	    columns: [age]
//	    mode: magnitude
type batchFile struct {
	Requests []records.Request `yaml:"requests"`
}

func loadBatchFile(path string) ([]records.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domain.ErrValidation("parse batch file %s: %v", path, err)
	}
	for i := range f.Requests {
		if f.Requests[i].Mode == "" {
			f.Requests[i].Mode = domain.GroupModeDistinct
		}
	}
	return f.Requests, nil
}

func newBatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.yaml>",
		Short: "Run several grouping requests from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := loadBatchFile(args[0])
			if err != nil {
				return err
			}

			svc, closeFn, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := svc.GroupBatch(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return printJSON(out, results)
			}
			for i, res := range results {
				if i > 0 {
					_, _ = fmt.Fprintln(out)
				}
				_, _ = fmt.Fprintf(out, "# %s (%d groups)\n", reqs[i].Source(), len(res.Groups))
				if err := printTable(out, groupHeaders, groupRows(res.Groups)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
