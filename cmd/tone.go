package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xlemi/tunearcade/internal/pitch"
	"github.com/0xlemi/tunearcade/internal/tuner"
)

const tonePoll = 50 * time.Millisecond

func init() {
	rootCmd.AddCommand(toneCmd)
}

var toneCmd = &cobra.Command{
	Use:   "tone <E2|A2|D3|G3|B3|E4|1-6>",
	Short: "Play one open string reference tone",
	Long:  `Plays the reference tone of an open guitar string, named by note and octave or by its number from the low E (1) to the high E (6), and exits once it has faded out.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseString(args[0])
		if err != nil {
			return err
		}
		if opts.simulate > 0 {
			return errors.New("tone plays on the output device and cannot be simulated")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		s := pitch.GuitarStrings[idx]
		synth := a.synthesizer()
		if err := synth.Play(s.Frequency); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Playing %s string (%.2f Hz)\n", s.Label, s.Frequency)

		ticker := time.NewTicker(tonePoll)
		defer ticker.Stop()
		ctx := cmd.Context()
		for {
			select {
			case <-ctx.Done():
				// closing the synthesizer fades the voice out
				return nil
			case <-ticker.C:
				if _, ok := synth.Active(); !ok {
					return nil
				}
			}
		}
	},
}

// parseString resolves a string name such as "A2", or a 1-based index
func parseString(arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(pitch.GuitarStrings) {
			return 0, fmt.Errorf("%w: %d (want 1-%d)", tuner.ErrUnknownString, n, len(pitch.GuitarStrings))
		}
		return n - 1, nil
	}

	for i, s := range pitch.GuitarStrings {
		note, ok := pitch.FrequencyToNote(s.Frequency)
		if ok && strings.EqualFold(note.String(), arg) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", tuner.ErrUnknownString, arg)
}
