package models

import "time"

// Artifact represents one compressed backup file on local disk.
type Artifact struct {
	Path    string
	ModTime time.Time
}

// RetentionResult holds the result of a retention pass.
type RetentionResult struct {
	Kept    int
	Evicted int
	Error   error
}
