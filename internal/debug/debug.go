// Package debug switches on debug logging for debug builds or when
// PROMPTBLOCKS_DEBUG=1 is set.
package debug

import (
	"os"

	"github.com/kayz/promptblocks/internal/logger"
)

// EnvDebug forces debug logging when set to "1".
const EnvDebug = "PROMPTBLOCKS_DEBUG"

// enabled is set via ldflags for debug builds
var enabled = ""

// Enabled reports whether debug mode is on.
func Enabled() bool {
	return enabled == "true" || os.Getenv(EnvDebug) == "1"
}

// Apply lowers the log level to debug when debug mode is on. It reports
// whether it did.
func Apply() bool {
	if !Enabled() {
		return false
	}
	logger.SetLevel(logger.DebugLevel)
	logger.Debug("[Debug] Debug mode enabled")
	return true
}
