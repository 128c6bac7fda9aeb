// Package version хранит данные сборки, которые подставляются через -ldflags:
//
//	-X github.com/vladislavdragonenkov/cafepos/internal/version.version=v1.2.0
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("cafepos version=%s commit=%s date=%s", version, commit, date)
}
