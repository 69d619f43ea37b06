package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-safedrive/pkg/audioio"
)

func alarmCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alarm",
		Short: "Alarm asset tools",
	}
	cmd.AddCommand(alarmGenerateCmd(load))
	return cmd
}

func alarmGenerateCmd(load loader) *cobra.Command {
	var (
		out      string
		freq     float64
		duration time.Duration
	)
	tone := audioio.DefaultTone()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a WAV alarm tone",
		Long: `Render a sine beep and write it as 16-bit mono WAV, by default to
alert.alarm_path from the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				cfg, err := load()
				if err != nil {
					return err
				}
				out = cfg.Alert.AlarmPath
			}
			tone.Frequency = freq
			tone.Duration = duration
			if err := audioio.WriteTone(out, tone); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.0f Hz, %s)\n", out, tone.Frequency, tone.Duration)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: alert.alarm_path)")
	cmd.Flags().Float64Var(&freq, "freq", tone.Frequency, "Tone frequency in Hz")
	cmd.Flags().DurationVar(&duration, "duration", tone.Duration, "Tone length")
	return cmd
}
