package config

import (
	"io"
	"time"
)

// Config is the read-only view of runtime configuration used by the service.
//
// Missing keys yield zero values; callers that need a default pass it through
// the key's registered default (see NewViper) rather than checking for zero.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int

	// GetDuration accepts Go duration strings ("5s", "1m30s"). A bare number
	// is read as seconds.
	GetDuration(key string) time.Duration

	// GetArray accepts either a YAML list or a comma separated string.
	// Blank elements are dropped.
	GetArray(key string) []string
}
