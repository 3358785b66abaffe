package models

import "time"

// CompressResult holds the result of compressing a dump file.
type CompressResult struct {
	OutputPath      string
	OriginalBytes   int64
	CompressedBytes int64
	Duration        time.Duration
	Error           error
}
