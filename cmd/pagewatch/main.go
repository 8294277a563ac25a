package main

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"pagewatch/internal/app"
	"pagewatch/internal/config"
	"pagewatch/internal/logging"
)

// Version is the version of the application, set at build time
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pagewatch",
	Short: "Watches web pages and delivers new files over Telegram",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the watcher daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		log, err := logging.New(logging.Config{
			Level:      cfg.Log.Level,
			Path:       cfg.Log.Path,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer log.Sync()

		return app.Run(cmd.Context(), cfg, log)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolving home directory: %w", err)
			}
			path = filepath.Join(home, ".config", "pagewatch", "config.toml")
		}

		if err := config.GenerateDefaultConfig(path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Generated default configuration at: %s\n", path)
		fmt.Println("Set telegram.token and telegram.owner_id before running serve.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pagewatch %s\n", Version)
		fmt.Println("Web page change watcher")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
