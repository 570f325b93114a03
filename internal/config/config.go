package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var (
	once    sync.Once
	envFile string
	envErr  error
)

// LoadEnv loads variables from the first .env file found in the current or
// parent directory. Variables already set in the environment win. It runs
// once per process and returns the file used, or "" when none exists.
func LoadEnv() (string, error) {
	once.Do(func() {
		envFile, envErr = loadEnvFrom(".", "..")
	})
	return envFile, envErr
}

func loadEnvFrom(dirs ...string) (string, error) {
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", nil
}
