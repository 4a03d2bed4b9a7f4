package buildinfo

import (
	"fmt"

	"github.com/appgrid-io/appgrid/core/infra/logging"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a single-line build summary.
func Info() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", Version, Commit, Date)
}

// Log writes the build summary under the service's component tag.
func Log(service string) {
	logging.Info(service, "build "+Info())
}
