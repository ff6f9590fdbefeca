package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads variables from the given .env files (".env" when none
// are named).  Missing files are ignored; variables already present in
// the environment are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFile seeds the environment from a YAML document of KEY: value
// pairs using the same names as the environment variables, e.g.
//
//	APP_PORT: 8080
//	DB_HOST: localhost
//
// Values already set in the environment win over the file.
func LoadFile(path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var values map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for k, node := range values {
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("config file %s: %s must be a scalar", path, k)
		}
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, node.Value); err != nil {
			return err
		}
	}
	return nil
}
