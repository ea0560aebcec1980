package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// LoadAnalyzerConfig reads an analyzer.toml sidecar configuration file and
// merges it over the given base. A missing file leaves the base unchanged;
// a malformed file is an error.
//
// Example analyzer.toml:
//
//	command = "clj-analyzer"
//	args = ["dump", "--format", "json"]
//	timeout-ms = 90000
func LoadAnalyzerConfig(path string, base AnalyzerConfig) (AnalyzerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, err
	}

	var overlay AnalyzerConfig
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return base, err
	}

	if overlay.Command != "" {
		base.Command = overlay.Command
		base.Args = overlay.Args
	}
	if overlay.TimeoutMs > 0 {
		base.TimeoutMs = overlay.TimeoutMs
	}
	return base, nil
}
