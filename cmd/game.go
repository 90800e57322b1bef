package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/0xlemi/tunearcade/internal/game"
	"github.com/0xlemi/tunearcade/internal/ui"
)

func init() {
	rootCmd.AddCommand(gameCmd)
}

var gameCmd = &cobra.Command{
	Use:   "game",
	Short: "Steer a ball through walls with your pitch",
	Long:  `Each wall has a gap tuned to a note between C3 and C4. Sing or play that note to move the ball through the gap; silence lets it sink.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		seed := a.cfg.Game.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		cfg := game.DefaultConfig()
		cfg.Width = a.cfg.Game.Width
		cfg.Height = a.cfg.Game.Height
		cfg.StartY = cfg.Height / 2

		session := game.NewSession(a.capturer(), a.detector(), game.NewSimulation(cfg, seed), a.logger)
		session.SetRecorder(a.metrics)
		defer session.Stop()

		a.logger.Info("game ready", "seed", seed)
		return a.runProgram(cmd.Context(), ui.NewGameModel(session))
	},
}
