package interactivetx

import (
	"github.com/btcsuite/btclog"
)

// log is the package level logger used throughout this package. It is
// disabled by default, and set to a proper instance via UseLogger.
var log btclog.Logger = btclog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}
