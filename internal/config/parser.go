// Package config provides configuration parsing from files and environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/avoss/pgdrive/internal/models"
)

// DefaultMaxBackups is the retention cap applied when none is configured.
const DefaultMaxBackups = 7

// Parser handles configuration parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser. Environment variables are
// bound so the job can run without a config file under cron.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")

	_ = v.BindEnv("database.url", "DB_URL")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("drive.service_account_key", "GOOGLE_SERVICE_ACCOUNT_KEY")
	_ = v.BindEnv("drive.folder_id", "GOOGLE_DRIVE_FOLDER_ID")
	_ = v.BindEnv("backup.directory", "BACKUP_DIR")
	_ = v.BindEnv("backup.max_backups", "MAX_BACKUPS")
	_ = v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	return &Parser{v: v}
}

// LoadFile loads configuration from a file path, with environment bindings
// filling any keys the file leaves out.
func (p *Parser) LoadFile(path string) (*models.BackupConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.BackupConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// LoadEnv builds the configuration from environment variables alone.
func (p *Parser) LoadEnv() (*models.BackupConfig, error) {
	return p.parse()
}

func (p *Parser) parse() (*models.BackupConfig, error) {
	cfg := &models.BackupConfig{}

	// Parse database config (required).
	cfg.Database = models.DatabaseConfig{
		URL:          p.expandEnv(p.v.GetString("database.url")),
		FallbackUser: p.v.GetString("database.user"),
		NameOverride: p.v.GetString("database.name"),
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url (DB_URL) is required")
	}

	// Parse Drive config (required). The key is either inline JSON or a file
	// path to the service-account key.
	key := p.v.GetString("drive.service_account_key")
	if keyFile := p.expandEnv(p.v.GetString("drive.service_account_key_file")); keyFile != "" {
		data, err := os.ReadFile(keyFile) //nolint:gosec // path comes from operator config
		if err != nil {
			return nil, fmt.Errorf("reading drive.service_account_key_file: %w", err)
		}
		key = string(data)
	}
	if key == "" {
		return nil, fmt.Errorf("drive.service_account_key (GOOGLE_SERVICE_ACCOUNT_KEY) is required")
	}
	if !json.Valid([]byte(key)) {
		return nil, fmt.Errorf("drive.service_account_key is not valid JSON")
	}

	cfg.Drive = models.DriveConfig{
		ServiceAccountKey: []byte(key),
		FolderID:          p.v.GetString("drive.folder_id"),
	}

	if cfg.Drive.FolderID == "" {
		return nil, fmt.Errorf("drive.folder_id (GOOGLE_DRIVE_FOLDER_ID) is required")
	}

	// Parse backup settings.
	cfg.Backup = models.BackupSettings{
		Directory: p.expandEnv(p.v.GetString("backup.directory")),
	}

	if cfg.Backup.Directory == "" {
		cfg.Backup.Directory = filepath.Join(os.TempDir(), "backups")
	}

	// Parse retention policy. Zero is a valid cap and evicts everything, so
	// the default applies only when the key is absent — and a typo must not
	// coerce to zero either.
	cfg.Retention = models.RetentionPolicy{MaxBackups: DefaultMaxBackups}
	if p.v.IsSet("backup.max_backups") {
		raw := p.v.GetString("backup.max_backups")
		maxBackups, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("backup.max_backups must be an integer, got %q", raw)
		}
		cfg.Retention.MaxBackups = maxBackups
	}

	if cfg.Retention.MaxBackups < 0 {
		return nil, fmt.Errorf("backup.max_backups must be >= 0")
	}

	// Parse optional Telegram config.
	if p.v.GetString("telegram.bot_token") != "" {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.v.GetString("telegram.chat_id"),
		}

		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.BackupConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if len(cfg.Drive.ServiceAccountKey) == 0 {
		return fmt.Errorf("drive.service_account_key is required")
	}

	if cfg.Drive.FolderID == "" {
		return fmt.Errorf("drive.folder_id is required")
	}

	if cfg.Retention.MaxBackups < 0 {
		return fmt.Errorf("backup.max_backups must be >= 0")
	}

	return nil
}
