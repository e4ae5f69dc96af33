package main

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

var definitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "Inspect grading definitions.",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var definitionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List grading definitions stored in the database.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		q, _ := cmd.Flags().GetString("q")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		store := rubric.NewSQLStore(conn, viperDriver())
		sums, err := store.ListDefinitions(rootCtx, rubric.ListOpts{Q: q, Status: status, Limit: limit})
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(sums))
		for _, s := range sums {
			rows = append(rows, []string{
				strconv.FormatInt(s.ID, 10),
				s.Name,
				s.Status,
				strconv.Itoa(s.Criteria),
				strconv.Itoa(s.Instances),
			})
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"ID", "Name", "Status", "Criteria", "Instances"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignLeft
		})
		if err := table.Bulk(rows); err != nil {
			return err
		}
		return table.Render()
	},
}

func init() {
	definitionsListCmd.Flags().String("q", "", "filter by name substring")
	definitionsListCmd.Flags().String("status", "", "filter by status (draft|ready)")
	definitionsListCmd.Flags().Int("limit", 50, "max rows")
	definitionsCmd.AddCommand(definitionsListCmd)
}
