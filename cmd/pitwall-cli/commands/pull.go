package commands

import (
	"context"
	"log/slog"
	"time"

	"pitwall-backend/lib/ergast"
	"pitwall-backend/lib/rawstore"
	"pitwall-backend/lib/restyutil"
	"pitwall-backend/lib/serviceutil"
	"pitwall-backend/lib/telemetry"
	"pitwall-backend/services/warehouse"

	"github.com/spf13/cobra"
)

var pullDebugHttp *string

func init() {
	pullDebugHttp = pullCmd.Flags().String(
		"debug-http", "",
		"Dump every HTTP exchange into the given directory.",
	)
	rootCmd.AddCommand(pullCmd)
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pulls raw API snapshots for every missing key.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()

		ctx := cmd.Context()
		tel, err := telemetry.SetupFromEnv(ctx, "pitwall-cli")
		if err == nil {
			defer tel.Shutdown(context.Background())
			telemetry.InstrumentPerfStats(ctx)
		}

		client := ergast.NewClient(cfg.Ergast)
		if *pullDebugHttp != "" {
			client.SetInstrumentOutput(restyutil.NewFilesystemOutput(*pullDebugHttp))
		}

		raw, err := rawstore.NewStore(cfg.RawDir)
		if err != nil {
			serviceutil.Fatal("failed to open raw store", err)
		}

		slog.Info(
			"pulling raw snapshots",
			"base_url", cfg.Ergast.BaseUrl,
			"years", cfg.Years,
			"raw_dir", cfg.RawDir,
		)

		t1 := time.Now()
		err = warehouse.NewIngestor(client, raw, cfg.Years).Pull(ctx)
		if err != nil {
			serviceutil.Fatal("pull failed", err)
		}
		slog.Info("pull finished", "seconds", time.Since(t1).Seconds())
	},
}
