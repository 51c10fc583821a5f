// Package app wires the datapipe packages into cli commands.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivanehh/datapipe/pkg/config"
)

// NewRootCmd builds a fresh command tree; every call returns independent flag state
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "datapipe",
		Short:         "Fetch data from authenticated HTTP APIs and persist it",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newBackupCmd())
	return rootCmd
}

func newConfigCmd() *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the merged configuration as JSON",
		Long: `Load every --config file in order and print the merged result.

Later files overwrite keys of earlier ones. The strategy is picked by suffix:
json, yaml/yml, toml (the first table is the configuration group) and csv
(a two column key,value table).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := loadConfig(files)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(l.Map(), "", "  ")
			if err != nil {
				return fmt.Errorf("formatting config: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringSliceVar(&files, "config", nil, "Configuration file; repeat to merge several")
	if err := cmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	return cmd
}

func loadConfig(files []string) (*config.Loader, error) {
	l, err := config.FromFiles(files...)
	if err != nil {
		return nil, err
	}
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}
