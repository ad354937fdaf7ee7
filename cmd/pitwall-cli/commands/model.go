package commands

import (
	"pitwall-backend/lib/serviceutil"
	"pitwall-backend/lib/sqliteutil"
	"pitwall-backend/services/warehouse"
	warehousedb "pitwall-backend/services/warehouse/db"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(modelCmd)
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Derives the leakage-safe modeling table from the clean tables.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		ctx := cmd.Context()

		db, err := sqliteutil.OpenDB(warehousedb.Schema, cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open warehouse database", err)
		}
		defer db.Close()

		reader := warehouse.NewReader(db)
		races, err := reader.ReadRaces(ctx)
		if err != nil {
			serviceutil.Fatal("failed to read races", err)
		}
		results, err := reader.ReadResults(ctx)
		if err != nil {
			serviceutil.Fatal("failed to read results", err)
		}

		rows, err := warehouse.BuildModeling(ctx, races, results, warehouse.ModelingOptions{
			HeldoutYear: cfg.HeldoutYear,
		})
		if err != nil {
			serviceutil.Fatal("failed to build modeling table", err)
		}

		err = warehouse.NewWriter(db).WriteModeling(ctx, rows)
		if err != nil {
			serviceutil.Fatal("failed to write modeling table", err)
		}
	},
}
