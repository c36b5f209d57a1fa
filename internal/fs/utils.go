package fs

import (
	"os"
	"strconv"
)

func safeInt64ToUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// envID reads a numeric user or group ID from the environment.
func envID(name string, fallback uint32) uint32 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		vfsLogger.Warn("Ignoring invalid %s %q: %v", name, raw, err)
		return fallback
	}
	vfsLogger.Debug("Using %s from environment: %d", name, id)
	return uint32(id)
}
