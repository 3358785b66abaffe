package models

import "time"

// RunResult summarizes a completed backup run.
type RunResult struct {
	Database       string
	Artifact       string
	UploadID       string
	BackupsKept    int
	BackupsEvicted int
	Duration       time.Duration
}
