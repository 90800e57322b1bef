package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0xlemi/tunearcade/internal/audio"
	"github.com/0xlemi/tunearcade/internal/pitch"
)

func init() {
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:   "detect <file.f32>",
	Short: "Print pitch estimates for a raw audio file",
	Long:  `Reads raw mono little-endian float32 samples (at --sample-rate) and prints one estimate per analysis window. Use "-" to read standard input.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open samples: %w", err)
			}
			defer f.Close()
			in = f
		}

		return detectFrames(bufio.NewReader(in), cmd.OutOrStdout(), a.detector(), a.cfg.Audio.WindowSize, a.cfg.Audio.SampleRate)
	},
}

// detectFrames runs det over consecutive non-overlapping windows of r and
// writes a table row per window. A trailing partial window is skipped.
func detectFrames(r io.Reader, w io.Writer, det pitch.Detector, window, sampleRate int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAME\tTIME\tHZ\tNOTE\tCENTS")

	frame := make([]float32, window)
	for i := 0; ; i++ {
		err := binary.Read(r, binary.LittleEndian, frame)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", i, err)
		}

		buf := &audio.AudioBuffer{Samples: frame, SampleRate: sampleRate}
		start := float64(i*window) / float64(sampleRate)
		est := det.Detect(buf)

		note, ok := pitch.FrequencyToNote(est.Hz())
		if !ok {
			fmt.Fprintf(tw, "%d\t%.3f\t-\t-\t-\n", i, start)
			continue
		}
		fmt.Fprintf(tw, "%d\t%.3f\t%.2f\t%s\t%+d\n", i, start, est.Hz(), note, note.Cents)
	}
	return tw.Flush()
}
