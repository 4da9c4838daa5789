package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/service"
)

var (
	topGame  string
	topLimit int
)

var topCmd = &cobra.Command{
	Use:   "top [-- server flags]",
	Short: "Print the overall leaderboard or one game's high scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, serverArgs := splitArgs(cmd, args)

		injector, err := openContainer(serverArgs, nil)
		if err != nil {
			return err
		}
		defer injector.Shutdown() //nolint:errcheck // best effort on exit

		leaderboards, err := do.Invoke[*service.LeaderboardService](injector)
		if err != nil {
			return err
		}

		page := domain.PageRequest{Page: 1, Size: topLimit}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		if topGame == "" {
			board, err := leaderboards.Overall(cmd.Context(), page)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "RANK\tWALLET\tPOINTS")
			for _, e := range board.Leaderboard {
				fmt.Fprintf(w, "%d\t%s\t%d\n", e.Rank, e.WalletAddress, e.TotalPoints)
			}
			return nil
		}

		board, err := leaderboards.GameHighScores(cmd.Context(), domain.GameType(topGame), page)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "RANK\tWALLET\tHIGH SCORE\tGAMES\tLAST PLAYED")
		for _, e := range board.Leaderboard {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n",
				e.Rank, e.WalletAddress, e.HighScore, e.GamesPlayed, e.LastPlayed.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	topCmd.Flags().StringVarP(&topGame, "game", "g", "", "game type; empty prints the overall ranking")
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 10, "number of rows")
	rootCmd.AddCommand(topCmd)
}
