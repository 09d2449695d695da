package board

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/iono/internal/logic"
)

// LoadConfig reads a YAML board file. Missing fields keep their defaults.
//
//	modes: [digital, voltage, current, digital]
//	pinout:
//	  do: [17, 27, 22, 23]
//	  ao: 18
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read board config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse board config %s", path)
	}
	return cfg, nil
}

// ParseModes parses a comma-separated list of exactly four slot modes.
func ParseModes(s string) ([Slots]Mode, error) {
	var modes [Slots]Mode
	parts := strings.Split(s, ",")
	if len(parts) != Slots {
		return modes, errors.Wrapf(logic.ErrInvalidConfig, "want %d input modes, got %d in %q", Slots, len(parts), s)
	}
	for i, p := range parts {
		m, err := ParseMode(p)
		if err != nil {
			return modes, err
		}
		modes[i] = m
	}
	return modes, nil
}
