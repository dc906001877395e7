package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironworks-mfg/taskcore/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize taskctl configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print resolved configuration settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.AllSettings()
		if jsonOutput {
			outputJSON(settings)
			return nil
		}
		if src := config.ConfigFileUsed(); src != "" {
			fmt.Printf("# loaded from %s\n", src)
		} else {
			fmt.Println("# no config file found; using defaults and environment variables")
		}
		for k, v := range settings {
			fmt.Printf("%s = %v\n", k, v)
		}
		return nil
	},
}

var configInitPath string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(configInitPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", configInitPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", ".taskcore/config.toml", "where to write the starter config")
	configCmd.AddCommand(configShowCmd, configInitCmd)
}
