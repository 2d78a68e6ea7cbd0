package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	envConfigPath = "EV_CONFIG_PATH"
	envHome       = "EV_HOME"
)

// GetDefaults resolves the default locations used by `evault config init`.
//
// EV_CONFIG_PATH overrides the config file (~/.config/evault.toml) and EV_HOME
// overrides the data directory (~/.local/share/evault) under which the log,
// vault and keys directories live.
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome(envConfigPath, ".config", "evault.toml")
	if err != nil {
		return nil, err
	}
	base, err := fromEnvOrHome(envHome, ".local", "share", "evault")
	if err != nil {
		return nil, err
	}

	defaults := map[string]string{
		"config_path": configPath,
		"base_dir":    base,
	}
	for _, dir := range []string{"log", "vault", "keys"} {
		key := dir + "_dir"
		if dir == "vault" {
			key = "vault_root"
		}
		defaults[key] = filepath.Join(base, dir)
	}
	return defaults, nil
}

// fromEnvOrHome returns $env when set, else the given path under the home directory.
func fromEnvOrHome(env string, rel ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving default for %s: %w", env, err)
	}
	return filepath.Join(append([]string{home}, rel...)...), nil
}
