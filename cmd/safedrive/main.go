// Command safedrive watches a driver through a camera and sounds an alarm
// when signs of drowsiness or distraction add up.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-safedrive/internal/config"
	"github.com/teslashibe/go-safedrive/internal/log"
)

const defaultConfigFile = "config.yaml"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "safedrive",
		Short: "Driver alertness monitor",
		Long: `safedrive - driver alertness monitor.

Landmarks from a camera feed are classified every frame (eyes, yawns,
head pose, phone in hand), fused over time into a NORMAL, WARNING or
DANGER level, and the alarm sounds while the configured level policy
says so.

Commands:
  run       Live monitoring from a camera or video file
  replay    Run a recorded landmark session headless
  config    Print the effective configuration
  alarm     Alarm asset tools`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file (default: ./"+defaultConfigFile+" if present)")

	load := func() (*config.AppConfig, error) {
		path := configPath
		if path == "" {
			if _, err := os.Stat(defaultConfigFile); err == nil {
				path = defaultConfigFile
			}
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		if err := log.Init(cfg.Log); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(runCmd(load))
	root.AddCommand(replayCmd(load))
	root.AddCommand(configCmd(load))
	root.AddCommand(alarmCmd(load))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := root.ExecuteContext(ctx)
	log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type loader func() (*config.AppConfig, error)

func configCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file and
SAFEDRIVE_* environment overrides have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
