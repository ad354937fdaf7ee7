package commands

import (
	"pitwall-backend/lib/rawstore"
	"pitwall-backend/lib/serviceutil"
	"pitwall-backend/lib/sqliteutil"
	"pitwall-backend/services/warehouse"
	warehousedb "pitwall-backend/services/warehouse/db"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the clean dimension and fact tables from raw snapshots.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		ctx := cmd.Context()

		raw, err := rawstore.NewStore(cfg.RawDir)
		if err != nil {
			serviceutil.Fatal("failed to open raw store", err)
		}
		db, err := sqliteutil.OpenDB(warehousedb.Schema, cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open warehouse database", err)
		}
		defer db.Close()

		builder := warehouse.NewBuilder(raw, cfg.Years)
		writer := warehouse.NewWriter(db)

		drivers, err := builder.BuildDrivers(ctx)
		if err != nil {
			serviceutil.Fatal("failed to build drivers", err)
		}
		constructors, err := builder.BuildConstructors(ctx)
		if err != nil {
			serviceutil.Fatal("failed to build constructors", err)
		}
		circuits, err := builder.BuildCircuits(ctx)
		if err != nil {
			serviceutil.Fatal("failed to build circuits", err)
		}
		races, err := builder.BuildRaces(ctx)
		if err != nil {
			serviceutil.Fatal("failed to build races", err)
		}
		results, err := builder.BuildResults(ctx)
		if err != nil {
			serviceutil.Fatal("failed to build results", err)
		}

		if err := writer.WriteDrivers(ctx, drivers); err != nil {
			serviceutil.Fatal("failed to write drivers", err)
		}
		if err := writer.WriteConstructors(ctx, constructors); err != nil {
			serviceutil.Fatal("failed to write constructors", err)
		}
		if err := writer.WriteCircuits(ctx, circuits); err != nil {
			serviceutil.Fatal("failed to write circuits", err)
		}
		if err := writer.WriteRaces(ctx, races); err != nil {
			serviceutil.Fatal("failed to write races", err)
		}
		if err := writer.WriteResults(ctx, results); err != nil {
			serviceutil.Fatal("failed to write results", err)
		}
	},
}
