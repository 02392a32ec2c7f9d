// Package config loads the fhedb.conf file: a plain key = value file
// with #-comments, kept in the FheDB home directory.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	configFileName = "fhedb.conf"
	fhedbDir       = ".fhedb"

	defaultServerPort     = 9172
	defaultMaxConnections = 100
)

type Config struct {
	ServerAddress  string
	ServerPort     int
	DataDir        string
	MaxConnections int
	Debug          bool
}

// Dir returns the path to the FheDB directory in the user's home directory.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, fhedbDir), nil
}

// New loads fhedb.conf from the FheDB home directory. A missing file
// yields the defaults.
func New() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return Load(filepath.Join(dir, configFileName))
}

// Load reads a config file from an explicit path. Unknown keys are
// ignored; a missing file yields the defaults with the data directory
// rooted next to the config file.
func Load(path string) (*Config, error) {
	config := &Config{
		ServerPort:     defaultServerPort,
		MaxConnections: defaultMaxConnections,
		DataDir:        filepath.Join(filepath.Dir(path), "data"),
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "server_address":
			config.ServerAddress = value
		case "server_port":
			config.ServerPort, err = strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid server port value: %w", err)
			}
		case "data_dir":
			config.DataDir = value
		case "max_connections":
			config.MaxConnections, err = strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid max connections value: %w", err)
			}
		case "debug":
			config.Debug = value == "true"
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return config, nil
}
