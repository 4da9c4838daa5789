package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mathrand "math/rand/v2"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/bitcoinworld/arcade-server/internal/config"
	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/service"
)

var (
	seedPlayers int
	seedScores  int
)

var seedCmd = &cobra.Command{
	Use:   "seed [-- server flags]",
	Short: "Create demo players and submit random scores for them",
	Long: "Logs in random wallets and submits scores through the normal pipeline,\n" +
		"so aggregates, leaderboards and realtime events behave as in production.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, serverArgs := splitArgs(cmd, args)

		injector, err := openContainer(serverArgs, func(cfg *config.Config) {
			// Seeding submits far faster than a player would.
			cfg.Scores.SubmitRatePerSecond = 0
			cfg.Auth.LoginRatePerMinute = 0
		})
		if err != nil {
			return err
		}
		defer injector.Shutdown() //nolint:errcheck // best effort on exit

		auth, err := do.Invoke[*service.AuthService](injector)
		if err != nil {
			return err
		}
		scores, err := do.Invoke[*service.ScoreService](injector)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		catalog := domain.Catalog()

		for range seedPlayers {
			wallet, err := randomWallet()
			if err != nil {
				return err
			}
			login, err := auth.Login(ctx, service.LoginInput{WalletAddress: wallet, ClientKey: "arcadectl"})
			if err != nil {
				return fmt.Errorf("login %s: %w", wallet, err)
			}
			identity := domain.Identity{UserID: login.User.ID, WalletAddress: login.User.WalletAddress}

			var total int64
			for range seedScores {
				game := catalog[mathrand.IntN(len(catalog))]
				score := int64(mathrand.IntN(200))
				points := score * game.PointsPerItem

				result, err := scores.Submit(ctx, identity, service.SubmitScoreInput{
					GameType: game.ID,
					Score:    &score,
					Points:   &points,
					GameData: map[string]any{"seeded": true},
				})
				if err != nil {
					return fmt.Errorf("submit for %s: %w", identity.WalletAddress, err)
				}
				if result.NewTotalPoints != nil {
					total = *result.NewTotalPoints
				}
			}
			fmt.Fprintf(out, "%s %s total=%d\n", identity.UserID, identity.WalletAddress, total)
		}
		return nil
	},
}

func randomWallet() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

func init() {
	seedCmd.Flags().IntVar(&seedPlayers, "players", 5, "number of players to create")
	seedCmd.Flags().IntVar(&seedScores, "scores", 20, "scores to submit per player")
	rootCmd.AddCommand(seedCmd)
}
