package kernel

import (
	"github.com/redshirt-os/redshirt/internal/log"
)

// SetDefaultLogger sets the logger used by a Kernel that has no
// Config.OverrideLogger of its own.
//
// By default, slog.Default() is used.
func SetDefaultLogger(logger *log.Logger) {
	log.SetDefaultLogger(logger)
}

// SetDefaultHandler sets the handler used by the package default logger.
// It has no effect on a Kernel started with Config.OverrideLogger set.
func SetDefaultHandler(handler log.Handler) {
	log.SetDefaultHandler(handler)
}
