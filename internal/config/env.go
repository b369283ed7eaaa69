package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// ErrNoDotEnv is returned by LoadDotEnv when the file does not exist.
var ErrNoDotEnv = errors.New(".env file not found")

// LoadDotEnv reads path into the process environment and returns how many
// variables it set. Values already in the environment are overwritten.
func LoadDotEnv(path string) (int, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrNoDotEnv
		}
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		if err := os.Setenv(k, vars[k]); err != nil {
			return i, fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return len(keys), nil
}
