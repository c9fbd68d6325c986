package app

import (
	"strings"

	"github.com/charlesng35/leadflow/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server settings,
// defaulting to info level and JSON output.
func ConfigureLogging(server ServerConfig) error {
	level := strings.TrimSpace(server.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.Init(logger.Options{Level: level, Format: server.LogFormat})
}
