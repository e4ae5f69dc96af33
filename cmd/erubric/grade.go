package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Compute a grade from a definition and a selections file.",
	Long: `Reads a definition JSON and a selections JSON mapping criterion id
to the score of the selected level, then maps the raw rubric score onto
the configured grade scale.`,
	Example: `  erubric grade -d def.json -s selections.json --grade-max 100`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		defPath, _ := cmd.Flags().GetString("definition")
		selPath, _ := cmd.Flags().GetString("selections")
		gradeMin, _ := cmd.Flags().GetFloat64("grade-min")
		gradeMax, _ := cmd.Flags().GetFloat64("grade-max")
		decimals, _ := cmd.Flags().GetBool("decimals")

		def, err := readDefinition(defPath)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(selPath)
		if err != nil {
			return err
		}
		var byName map[string]float64
		if err := json.Unmarshal(raw, &byName); err != nil {
			return fmt.Errorf("parse %s: %w", selPath, err)
		}
		selections := make(map[int64]float64, len(byName))
		for k, v := range byName {
			id, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return fmt.Errorf("selection key %q is not a criterion id", k)
			}
			selections[id] = v
		}

		scale := rubric.ScaleFor(&def, gradeMin, gradeMax, decimals)
		grade, ok := rubric.ComputeGrade(selections, scale)
		if !ok {
			return fmt.Errorf("grade unavailable: empty score range or grade scale")
		}
		if decimals {
			fmt.Printf("Grade: %.2f\n", grade)
		} else {
			fmt.Printf("Grade: %.0f\n", grade)
		}
		return nil
	},
}

func init() {
	gradeCmd.Flags().StringP("definition", "d", "", "path to the definition JSON")
	gradeCmd.Flags().StringP("selections", "s", "", "path to the selections JSON (criterion id -> level score)")
	gradeCmd.Flags().Float64("grade-min", 0, "lower bound of the grade scale")
	gradeCmd.Flags().Float64("grade-max", 100, "upper bound of the grade scale")
	gradeCmd.Flags().Bool("decimals", false, "allow fractional grades")
	_ = gradeCmd.MarkFlagRequired("definition")
	_ = gradeCmd.MarkFlagRequired("selections")
}
