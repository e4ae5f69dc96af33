package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify the severity of a definition edit.",
	Long: `
Compares an old and a new definition JSON file and reports the
overall severity (0-5) together with every detected change. Severity 3
and above means in-flight gradings would need regrading.`,
	Example: `  erubric classify -o old.json -n new.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		oldPath, _ := cmd.Flags().GetString("old")
		newPath, _ := cmd.Flags().GetString("new")

		oldDef, err := readDefinition(oldPath)
		if err != nil {
			return err
		}
		newDef, err := readDefinition(newPath)
		if err != nil {
			return err
		}

		sev, changes := rubric.Classify(&oldDef, newDef)
		fmt.Printf("Severity: %s\n", colorSeverity(sev))

		if len(changes) == 0 {
			return nil
		}
		rows := make([][]string, 0, len(changes))
		for _, c := range changes {
			rows = append(rows, []string{
				strconv.Itoa(int(c.Severity)),
				formatID(c.CriterionID),
				formatID(c.LevelID),
				c.Reason,
			})
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Sev", "Criterion", "Level", "Reason"})
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
	classifyCmd.Flags().StringP("old", "o", "", "path to the currently stored definition JSON")
	classifyCmd.Flags().StringP("new", "n", "", "path to the edited definition JSON")
	_ = classifyCmd.MarkFlagRequired("old")
	_ = classifyCmd.MarkFlagRequired("new")
}

func readDefinition(path string) (rubric.Definition, error) {
	var d rubric.Definition
	raw, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

func colorSeverity(s rubric.Severity) string {
	label := fmt.Sprintf("%d (%s)", int(s), s)
	switch {
	case s >= rubric.SeverityLevelGone:
		return color.New(color.FgRed, color.Bold).Sprint(label)
	case s >= rubric.SeverityLevelAdded:
		return color.New(color.FgYellow).Sprint(label)
	case s == rubric.SeverityNone:
		return color.New(color.FgGreen).Sprint(label)
	default:
		return label
	}
}

func formatID(id int64) string {
	if id == 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}
