package util

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`
	GemHome   string `toml:"-"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// LoadFile merges settings from a TOML file into the configuration. A
// missing file is not an error; flags parsed after the merge win over file
// values.
func LoadFile(path string, config *Configuration) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return err
	}
	slog.Debug("loaded configuration file", slog.String("path", path))
	return nil
}
