package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/avoss/pgdrive/internal/config"
	"github.com/avoss/pgdrive/internal/models"
	"github.com/avoss/pgdrive/internal/services/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the backup workflow",
	Long: `Execute the complete backup workflow:
1. Resolve connection parameters from the database URL
2. Verify database connectivity
3. Dump the database via pg_dump
4. Compress the dump to a .gz artifact
5. Upload the artifact to Google Drive
6. Prune local artifacts beyond the retention cap
7. Send Telegram notification (if configured)`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("backup_dir", cfg.Backup.Directory).
		Int("max_backups", cfg.Retention.MaxBackups).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	runnerSvc := runner.New(log.Logger)
	result, err := runnerSvc.Run(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("backup failed")
		return err
	}

	fmt.Printf("Backup uploaded to Google Drive: %s\n", result.UploadID)
	fmt.Printf("Backup management complete. %d backups retained.\n", result.BackupsKept)
	return nil
}

// loadConfig loads from the config file when one is given, otherwise from
// environment variables.
func loadConfig() (*models.BackupConfig, error) {
	parser := config.NewParser()

	var cfg *models.BackupConfig
	var err error
	if configFile != "" {
		cfg, err = parser.LoadFile(configFile)
	} else {
		cfg, err = parser.LoadEnv()
	}
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}

	return cfg, nil
}
