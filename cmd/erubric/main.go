// Command erubric is the admin CLI for the enriched-rubric grading engine.
// It talks to the same database as erubricd and also offers offline
// classification and grade computation over definition JSON files.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/db"
)

var rootCtx = context.Background()

var rootCmd = &cobra.Command{
	Use:           "erubric",
	Short:         "Manage enriched-rubric grading definitions.",
	Long:          `erubric inspects rubric definitions, classifies edits and computes grades from the command line.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	viper.SetEnvPrefix("ERUBRIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("db-driver", "sqlite")
	viper.SetDefault("db-dsn", "")

	rootCmd.PersistentFlags().String("db-driver", "sqlite", "database driver (sqlite|postgres)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database DSN")
	_ = viper.BindPFlag("db-driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("db-dsn", rootCmd.PersistentFlags().Lookup("db-dsn"))

	rootCmd.AddCommand(definitionsCmd, classifyCmd, gradeCmd, validateCmd)
}

func openDB() (*sql.DB, error) {
	return db.Open(rootCtx, db.Driver(viperDriver()), viper.GetString("db-dsn"))
}

func viperDriver() string {
	return viper.GetString("db-driver")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
