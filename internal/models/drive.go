package models

import "time"

// UploadResult holds the result of a Google Drive upload.
type UploadResult struct {
	FileID    string
	SizeBytes int64
	Duration  time.Duration
	Error     error
}
