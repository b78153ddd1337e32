// Package config loads optional operator tuning for captbackend.
//
// captbackend runs fine with zero configuration — every value here has a
// spec-mandated default (spec.md §4, §5). This package only exists so an
// operator can override the polling/timeout constants without a rebuild,
// the same way the teacher's common/config locates a TOML file across
// platform-specific search paths; the database/web/report config structs
// that package also carries do not apply here and are not adapted (see
// DESIGN.md).
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Settings are the operator-tunable knobs spec.md leaves as constants.
type Settings struct {
	// PollInterval is the cadence of status polling in wait_ready / prepare_before_print (spec §4.4).
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// RetryInterval is the sleep between go_online refusals and reprint retries (spec §4.5).
	RetryIntervalSeconds int `toml:"retry_interval_seconds"`
	// TransportTimeout bounds a single transport read/write (spec §5).
	TransportTimeoutSeconds int `toml:"transport_timeout_seconds"`
	// DiscoveryInterval is the cadence of the connecting-to-device retry loop (spec §4.6 step 3).
	DiscoveryIntervalSeconds int `toml:"discovery_interval_seconds"`
}

// Default returns the settings implied by spec.md's literal constants.
func Default() Settings {
	return Settings{
		PollIntervalSeconds:      1,
		RetryIntervalSeconds:     1,
		TransportTimeoutSeconds:  5,
		DiscoveryIntervalSeconds: 5,
	}
}

const fileName = "capt-backend.toml"

// Load searches the platform-appropriate locations for an optional
// configuration file and overlays it onto the defaults. A missing file is
// not an error.
func Load() (Settings, error) {
	settings := Default()

	for _, path := range SearchPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if _, err := toml.Decode(string(data), &settings); err != nil {
			return settings, err
		}
		return settings, nil
	}
	return settings, nil
}

// SearchPaths returns an ordered list of locations to look for the
// configuration file, adapted from the teacher's
// common/config.GetConfigSearchPaths (system dir -> user dir -> executable
// dir -> cwd), narrowed to this backend's single component.
func SearchPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		paths = append(paths, filepath.Join("/Library/Application Support/captbackend", fileName))
	default:
		paths = append(paths, filepath.Join("/etc/captbackend", fileName))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "darwin":
			paths = append(paths, filepath.Join(homeDir, "Library/Application Support/captbackend", fileName))
		default:
			paths = append(paths, filepath.Join(homeDir, ".config/captbackend", fileName))
		}
	}

	if exePath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exePath), fileName))
	}

	paths = append(paths, filepath.Join(".", fileName))
	return paths
}
