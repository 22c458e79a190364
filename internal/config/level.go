// internal/config/level.go
package config

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ParseLevel maps a configured log level to logrus.
// The plugin-style names normal, verbose, extra and all are accepted
// next to the logrus ones. Empty means info.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return log.InfoLevel, nil
	case "verbose", "extra":
		return log.DebugLevel, nil
	case "all":
		return log.TraceLevel, nil
	}

	lvl, err := log.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return lvl, nil
}
