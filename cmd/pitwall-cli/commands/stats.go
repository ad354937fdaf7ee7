package commands

import (
	"os"

	"pitwall-backend/lib/serviceutil"
	"pitwall-backend/lib/sqliteutil"
	"pitwall-backend/services/warehouse"
	warehousedb "pitwall-backend/services/warehouse/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints row counts and the modeling split distribution.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		ctx := cmd.Context()

		db, err := sqliteutil.OpenDB(warehousedb.Schema, cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open warehouse database", err)
		}
		defer db.Close()

		reader := warehouse.NewReader(db)

		counts := newTable()
		counts.AppendHeader(table.Row{"table", "rows"})
		for _, name := range []string{
			"drivers", "constructors", "circuits",
			"races", "results", "driver_race_modeling",
		} {
			count, err := reader.TableCount(ctx, name)
			if err != nil {
				serviceutil.Fatal("failed to count table", err)
			}
			counts.AppendRow(table.Row{name, count})
		}
		counts.Render()

		splits, err := reader.SplitCounts(ctx)
		if err != nil {
			serviceutil.Fatal("failed to read split counts", err)
		}
		splitTable := newTable()
		splitTable.AppendHeader(table.Row{"split", "rows"})
		for _, split := range []string{"train", "test"} {
			splitTable.AppendRow(table.Row{split, splits[split]})
		}
		splitTable.Render()
	},
}
