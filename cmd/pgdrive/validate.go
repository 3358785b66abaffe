package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/avoss/pgdrive/internal/dburl"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the configuration and database URL without executing any backup operations.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Error().Str("file", configFile).Msg("config file not found")
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The URL must parse and yield a password before a run can succeed.
	spec, err := dburl.Parse(cfg.Database.URL, cfg.Database.FallbackUser)
	if err != nil {
		log.Error().Err(err).Msg("database URL validation failed")
		return err
	}

	database := spec.Database
	if cfg.Database.NameOverride != "" {
		database = cfg.Database.NameOverride
	}
	user := spec.User
	if user == "" {
		user = "(pg_dump default)"
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Database host: %s\n", spec.Host)
	fmt.Printf("  Database port: %d\n", spec.Port)
	fmt.Printf("  Database name: %s\n", database)
	fmt.Printf("  Database user: %s\n", user)
	fmt.Printf("  Password: (configured)\n")
	fmt.Println()
	fmt.Printf("  Drive folder: %s\n", cfg.Drive.FolderID)
	fmt.Printf("  Backup directory: %s\n", cfg.Backup.Directory)
	fmt.Printf("  Max backups: %d\n", cfg.Retention.MaxBackups)
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	return nil
}
