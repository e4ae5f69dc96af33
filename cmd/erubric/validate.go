package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

var validateCmd = &cobra.Command{
	Use:     "validate",
	Short:   "Validate a definition JSON file.",
	Example: `  erubric validate -d def.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		defPath, _ := cmd.Flags().GetString("definition")
		def, err := readDefinition(defPath)
		if err != nil {
			return err
		}

		issues := rubric.Validate(&def)
		if len(issues) == 0 {
			fmt.Println(color.New(color.FgGreen).Sprint("OK"), "definition is valid")
			return nil
		}

		rows := make([][]string, 0, len(issues))
		for _, is := range issues {
			crit := "-"
			if is.Criterion >= 0 {
				crit = strconv.Itoa(is.Criterion + 1)
			}
			rows = append(rows, []string{is.Code, crit, is.Message})
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Code", "Criterion", "Message"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignLeft
		})
		if err := table.Bulk(rows); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
		return fmt.Errorf("%s issue(s) found", strconv.Itoa(len(issues)))
	},
}

func init() {
	validateCmd.Flags().StringP("definition", "d", "", "path to the definition JSON")
	_ = validateCmd.MarkFlagRequired("definition")
}
