package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultProfileName = "default"

// UserConfig represents ~/.blogmate/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile" json:"current_profile"`
	Profiles       map[string]Profile `yaml:"profiles" json:"profiles"`
}

// Profile is a named set of connection defaults.
type Profile struct {
	Host   string `yaml:"host,omitempty" json:"host,omitempty"`
	Token  string `yaml:"token,omitempty" json:"token,omitempty"`
	Email  string `yaml:"email,omitempty" json:"email,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

func newUserConfig() *UserConfig {
	return &UserConfig{CurrentProfile: defaultProfileName, Profiles: map[string]Profile{}}
}

// ActiveProfileName returns override if set, else the current profile.
func (c *UserConfig) ActiveProfileName(override string) string {
	switch {
	case override != "":
		return override
	case c.CurrentProfile != "":
		return c.CurrentProfile
	default:
		return defaultProfileName
	}
}

// ActiveProfile returns the selected profile. An unknown name yields the zero
// Profile so a fresh install works without any config file.
func (c *UserConfig) ActiveProfile(override string) Profile {
	return c.Profiles[c.ActiveProfileName(override)]
}

// ConfigDir returns ~/.blogmate, or BLOGMATE_CONFIG_DIR when set.
func ConfigDir() string {
	if dir := os.Getenv("BLOGMATE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blogmate"
	}
	return filepath.Join(home, ".blogmate")
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads the config file. A missing file is not an error.
func LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if os.IsNotExist(err) {
		return newUserConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := newUserConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", ConfigPath(), err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return cfg, nil
}

// SaveUserConfig writes the config file with owner-only permissions.
func SaveUserConfig(cfg *UserConfig) error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
