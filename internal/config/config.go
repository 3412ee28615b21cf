// Package config manages the admin CLI's profile file at ~/.rubbish/config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// EnvConnstr overrides the profile file when set, which is how CI and the
// deployed services supply their connection strings.
const EnvConnstr = "RUBBISH_POSTGIS_CONNSTR"

var ErrNoConnstr = errors.New("config: no database connection string configured")

type Profile struct {
	Connstr string `yaml:"connstr"`
}

// Path returns the profile file location, creating nothing.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".rubbish", "config"), nil
}

// Load reads the profile file. A missing file is not an error; it returns an
// empty profile so callers can fall through to ErrNoConnstr.
func Load() (Profile, error) {
	var p Profile
	path, err := Path()
	if err != nil {
		return p, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return p, nil
}

// Save writes the profile file, creating ~/.rubbish if needed. The file is
// 0600 because the connstr usually embeds a password.
func Save(p Profile) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}
	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("config: encoding profile: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// Connstr resolves the working connection string: the environment override
// first, then the profile file.
func Connstr() (string, error) {
	if v := os.Getenv(EnvConnstr); v != "" {
		return v, nil
	}
	p, err := Load()
	if err != nil {
		return "", err
	}
	if p.Connstr == "" {
		return "", ErrNoConnstr
	}
	return p.Connstr, nil
}
