package models

import "time"

// ConnectionSpec holds the connection parameters resolved from a database URL.
type ConnectionSpec struct {
	Host     string
	Port     int
	Database string
	// User may be empty when the URL carries no user-info username and no
	// fallback user is configured; pg_dump then applies its own default.
	User     string
	Password string
}

// DumpResult holds the result of a pg_dump operation.
type DumpResult struct {
	OutputPath string
	SizeBytes  int64
	Duration   time.Duration
	Error      error
}
