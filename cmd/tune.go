package main

import (
	"github.com/spf13/cobra"

	"github.com/0xlemi/tunearcade/internal/tuner"
	"github.com/0xlemi/tunearcade/internal/ui"
)

func init() {
	rootCmd.AddCommand(tuneCmd)
}

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Show the detected note and its tuning",
	Long:  `Listens to the microphone and shows the detected note, its frequency and how many cents it is off. Keys 1-6 play the open guitar strings as reference tones.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := tuner.DefaultConfig()
		cfg.InTuneCents = a.cfg.Tuner.InTuneCents
		cfg.Smoothing = a.cfg.Tuner.Smoothing

		ctrl := tuner.NewController(a.capturer(), a.detector(), a.synthesizer(), a.logger, cfg)
		defer ctrl.Close()

		return a.runProgram(cmd.Context(), ui.NewTunerModel(ctrl))
	},
}
