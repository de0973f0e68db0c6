// Package version хранит сведения о сборке, которые задаются через -ldflags:
//
//	go build -ldflags "-X github.com/vladislavdragonenkov/retail/internal/version.version=v1.2.0"
package version

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Build описывает текущую сборку.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get возвращает сведения о сборке.
func Get() Build {
	return Build{Version: version, Commit: commit, Date: date}
}

// GetVersion возвращает только версию.
func GetVersion() string {
	return version
}

func (b Build) String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", b.Version, b.Commit, b.Date)
}

// Fields возвращает поля для стартовой записи лога.
func (b Build) Fields() log.Fields {
	return log.Fields{
		"version": b.Version,
		"commit":  b.Commit,
		"date":    b.Date,
	}
}
