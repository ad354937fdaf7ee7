package commands

import (
	"context"
	"fmt"
	"os"

	"pitwall-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool

func init() {
	verbose = rootCmd.PersistentFlags().BoolP(
		"verbose", "v", false,
		"Enable debug logging.",
	)
}

var rootCmd = &cobra.Command{
	Use:   "pitwall-cli",
	Short: "pitwall-cli pulls historical race data and builds the modeling warehouse.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
