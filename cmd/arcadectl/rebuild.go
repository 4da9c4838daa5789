package main

import (
	"errors"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/bitcoinworld/arcade-server/internal/service"
)

var rebuildAll bool

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [userID] [-- server flags]",
	Short: "Recompute player aggregates from their score records",
	Long: "Replays every score record of a player into a fresh aggregate and saves it.\n" +
		"Minted points are kept, clamped to the rebuilt total.",
	RunE: func(cmd *cobra.Command, args []string) error {
		userArgs, serverArgs := splitArgs(cmd, args)
		if rebuildAll == (len(userArgs) == 1) || len(userArgs) > 1 {
			return errors.New("pass exactly one user ID or --all")
		}

		injector, err := openContainer(serverArgs, nil)
		if err != nil {
			return err
		}
		defer injector.Shutdown() //nolint:errcheck // best effort on exit

		rebuild, err := do.Invoke[*service.RebuildService](injector)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if rebuildAll {
			report, err := rebuild.RebuildAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "rebuilt %d of %d players in %s\n", report.Rebuilt, report.Players, report.Duration)
			for _, userID := range report.Failed {
				fmt.Fprintf(out, "failed: %s\n", userID)
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d players failed to rebuild", len(report.Failed))
			}
			return nil
		}

		user, err := rebuild.RebuildPlayer(cmd.Context(), userArgs[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s total=%d minted=%d available=%d\n",
			user.ID, user.WalletAddress, user.TotalPoints, user.MintedPoints, user.AvailablePoints)
		return nil
	},
}

// splitArgs separates positional arguments from server flags after "--".
func splitArgs(cmd *cobra.Command, args []string) (positional, server []string) {
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		return args[:at], args[at:]
	}
	return args, nil
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildAll, "all", false, "rebuild every player")
	rootCmd.AddCommand(rebuildCmd)
}
