// Package models contains the data structures used throughout pgdrive.
package models

// BackupConfig holds the complete configuration for a backup run.
type BackupConfig struct {
	Database  DatabaseConfig
	Drive     DriveConfig
	Backup    BackupSettings
	Retention RetentionPolicy
	Telegram  *TelegramConfig // nil if not configured
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	URL          string // connection URL; credentials in user-info or a password query parameter
	FallbackUser string // used when the URL user-info carries no username
	NameOverride string // overrides the database name from the URL path when set
}

// DriveConfig holds Google Drive upload configuration.
type DriveConfig struct {
	ServiceAccountKey []byte // service-account key JSON
	FolderID          string
}

// BackupSettings holds local backup directory settings.
type BackupSettings struct {
	Directory string
}

// RetentionPolicy defines how many local artifacts to keep.
type RetentionPolicy struct {
	MaxBackups int
}
