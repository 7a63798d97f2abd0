package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const deviceIDFile = "device_id"

// LoadOrCreateDeviceID returns the device ID stored under dataPath,
// generating and saving a new UUID on first use.
func LoadOrCreateDeviceID(dataPath string) (string, error) {
	path := filepath.Join(dataPath, deviceIDFile)

	//#nosec G304 -- path is derived from the configured data path
	if raw, err := os.ReadFile(path); err == nil {
		id := strings.TrimSpace(string(raw))
		if _, err := uuid.Parse(id); err != nil {
			return "", fmt.Errorf("invalid device id in %s: %w", path, err)
		}
		return id, nil
	}

	id := uuid.NewString()

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", fmt.Errorf("failed to save device id: %w", err)
	}
	return id, nil
}
