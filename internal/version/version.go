// Package version хранит сведения о сборке, заполняемые через -ldflags.
package version

import "fmt"

// ServiceName используется в логах и health-ответах.
const ServiceName = "p2p-bastyon-backend"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Version возвращает версию сборки.
func Version() string { return version }

// String возвращает полное описание сборки для логов.
func String() string {
	return fmt.Sprintf("%s version=%s commit=%s date=%s", ServiceName, version, commit, date)
}
