package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/reclaim/pkg/config"
	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

const defaultConfigPath = "reclaim.yaml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bench configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return reclaimerrors.New(reclaimerrors.ErrorTypeFile, "config file already exists, use --force to overwrite").
						WithDetail("path", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeFile, "failed to stat config file").
						WithDetail("path", path)
				}
			}
			if err := config.Save(path, config.NewBenchConfig("reclaim")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Load and validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewBenchConfig("reclaim")
			if err := config.Load(args[0], cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s pool, %d frames)\n", args[0], cfg.Pool.Kind, cfg.Workload.Frames)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
